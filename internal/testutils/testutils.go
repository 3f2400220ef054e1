//go:build integration

// Package testutils provides shared test infrastructure for integration tests.
package testutils

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
)

// OrbitFile is an orbit file served by StartOrbitServer.
type OrbitFile struct {
	Name string
	Data []byte
}

// GenerateOrbitData returns a small deterministic EOF body for name.
func GenerateOrbitData(name string, size int) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<?xml version=\"1.0\"?>\n<Earth_Explorer_File><!-- %s -->\n", name)
	for buf.Len() < size {
		buf.WriteString("<OSV><TAI>TAI=2021-02-13T00:00:00</TAI></OSV>\n")
	}
	buf.WriteString("</Earth_Explorer_File>\n")
	return buf.Bytes()
}

// StartOrbitServer serves an HTML directory listing at / linking every file,
// and the files themselves at /<name>.
func StartOrbitServer(t *testing.T, files []OrbitFile) *httptest.Server {
	t.Helper()

	fileMap := make(map[string][]byte)
	var listing strings.Builder
	listing.WriteString("<html><body><pre>\n<a href=\"../\">../</a>\n")
	for _, f := range files {
		fileMap["/"+f.Name] = f.Data
		fmt.Fprintf(&listing, "<a href=\"%s\">%s</a>  %d\n", f.Name, f.Name, len(f.Data))
	}
	listing.WriteString("</pre></body></html>\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, listing.String())
			return
		}
		data, ok := fileMap[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

// WriteArchive writes <dir>/<product>.zip containing a minimal SAFE layout.
func WriteArchive(t *testing.T, dir, product string) string {
	t.Helper()

	path := filepath.Join(dir, product+".zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	safe := product + ".SAFE/"
	for name, body := range map[string]string{
		safe + "manifest.safe":                 "<manifest/>",
		safe + "measurement/iw1-slc-vv.tiff":   strings.Repeat("x", 4096),
		safe + "annotation/iw1-slc-vv-001.xml": "<product/>",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return path
}

// MinioEnv contains connection information for a Minio test environment.
type MinioEnv struct {
	Container testcontainers.Container
	BucketURL string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Close terminates the Minio container.
func (e *MinioEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// OpenBucket opens a gocloud bucket connection to the Minio environment.
func (e *MinioEnv) OpenBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, e.BucketURL)
}

// StartMinioContainer starts a Minio container with a pre-created bucket.
func StartMinioContainer(t *testing.T, ctx context.Context, bucketName string) *MinioEnv {
	t.Helper()

	const (
		accessKey = "minioadmin"
		secretKey = "minioadmin"
	)

	// minio and mc talk over a private network
	networkName := fmt.Sprintf("slcflow-test-net-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name: networkName,
		},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	minioContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"minio"},
			},
			Env: map[string]string{
				"MINIO_ROOT_USER":     accessKey,
				"MINIO_ROOT_PASSWORD": secretKey,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}

	createBucket(t, ctx, networkName, accessKey, secretKey, bucketName)

	host, err := minioContainer.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := minioContainer.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}
	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	bucketURL := fmt.Sprintf("s3://%s?endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1",
		bucketName,
		endpoint,
	)

	// gocloud reads credentials from the environment
	t.Setenv("AWS_ACCESS_KEY_ID", accessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", secretKey)

	return &MinioEnv{
		Container: minioContainer,
		BucketURL: bucketURL,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

func createBucket(t *testing.T, ctx context.Context, networkName, accessKey, secretKey, bucketName string) {
	t.Helper()

	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{networkName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd: []string{
				fmt.Sprintf(
					"/usr/bin/mc config host add myminio http://minio:9000 %s %s && "+
						"/usr/bin/mc mb myminio/%s; exit 0",
					accessKey, secretKey, bucketName,
				),
			},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	defer mc.Terminate(ctx)
}

// CompareObject fails the test unless key in bucket holds exactly expected.
func CompareObject(t *testing.T, ctx context.Context, bucket *blob.Bucket, key string, expected []byte) {
	t.Helper()

	got, err := bucket.ReadAll(ctx, key)
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	if !bytes.Equal(got, expected) {
		t.Fatalf("%s: got %d bytes, want %d", key, len(got), len(expected))
	}
}
