package orbit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"gocloud.dev/blob"

	"github.com/ligustah/slcflow/internal/batch"
	slchttp "github.com/ligustah/slcflow/internal/http"
	"github.com/ligustah/slcflow/internal/progress"
	"github.com/ligustah/slcflow/internal/slc"
	"github.com/ligustah/slcflow/internal/storage"
	"github.com/ligustah/slcflow/internal/tasklog"
)

// ScanAcquisitions parses the SLC archives in dir. Archives whose names do
// not parse are returned separately so the caller can report them.
func ScanAcquisitions(dir string) (acquisitions []slc.Name, ignored []string, err error) {
	archives, err := slc.FindArchives(dir)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range archives {
		n, err := slc.ParseName(a.Path)
		if err != nil {
			ignored = append(ignored, a.Path)
			continue
		}
		acquisitions = append(acquisitions, n)
	}
	return acquisitions, ignored, nil
}

// Match selects the orbit file for every acquisition: an entry of the same
// mission whose validity window covers the acquisition day. When the listing
// holds several candidates the most recently generated one wins. Every
// selected entry appears once; acquisitions without a candidate are returned
// as unmatched.
func Match(acquisitions []slc.Name, entries []Entry) (matched []Entry, unmatched []slc.Name) {
	seen := make(map[string]bool)
	for _, a := range acquisitions {
		date := a.AcquisitionDate()

		var best *Entry
		for i := range entries {
			e := &entries[i]
			if e.Mission != a.Mission || !e.Covers(date) {
				continue
			}
			if best == nil || e.Created.After(best.Created) {
				best = e
			}
		}

		if best == nil {
			unmatched = append(unmatched, a)
			continue
		}
		if !seen[best.Name] {
			seen[best.Name] = true
			matched = append(matched, *best)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return matched, unmatched
}

// TaskID names the download task and its log file.
func (e Entry) TaskID() string {
	return "orbit_" + strings.TrimSuffix(e.Name, ".EOF")
}

// Downloader streams orbit files into a bucket.
type Downloader struct {
	Client *slchttp.Client
	Bucket *blob.Bucket

	// Force downloads files that already exist in the bucket.
	Force bool

	// Progress, when set, receives downloaded byte counts.
	Progress *progress.Reporter
}

// Tasks returns one download task per entry. Entries already present in the
// bucket are skipped unless Force is set.
func (d *Downloader) Tasks(ctx context.Context, entries []Entry) ([]batch.Task, error) {
	tasks := make([]batch.Task, 0, len(entries))
	for _, e := range entries {
		t := batch.Task{ID: e.TaskID()}
		if !d.Force {
			attrs, err := d.Bucket.Attributes(ctx, e.Name)
			switch {
			case err == nil:
				t.SkipReason = "already downloaded (" + progress.FormatBytes(attrs.Size) + ")"
			case !storage.IsNotExist(err):
				return nil, fmt.Errorf("check %s: %w", e.Name, err)
			}
		}
		if t.SkipReason == "" {
			t.Action = func(ctx context.Context, log *tasklog.Log) error {
				return d.Download(ctx, e, log)
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Download fetches one orbit file and writes it to the bucket. A failed or
// truncated transfer aborts the write so no partial object is left behind.
func (d *Downloader) Download(ctx context.Context, e Entry, log *tasklog.Log) error {
	log.Printf("Downloading %s", e.URL)

	resp, err := d.Client.Get(ctx, e.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Cancelling the writer's context before Close discards the object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := d.Bucket.NewWriter(wctx, e.Name, &blob.WriterOptions{
		ContentType: "application/xml",
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", e.Name, err)
	}

	n, err := io.Copy(w, resp.Body)
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	if err != nil {
		cancel()
		w.Close()
		return fmt.Errorf("download %s: %w", e.Name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", e.Name, err)
	}

	if d.Progress != nil {
		d.Progress.AddBytes(n)
	}
	log.Printf("Downloaded %s (%s)", e.Name, progress.FormatBytes(n))
	return nil
}
