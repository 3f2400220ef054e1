package slc

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidName is returned for file names that are not Sentinel-1 SLC products.
var ErrInvalidName = errors.New("not a Sentinel-1 SLC product name")

const timeLayout = "20060102T150405"

// MMM_BB_SLC__1SPP_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOOO_DDDDDD_CCCC
var namePattern = regexp.MustCompile(
	`^(S1[A-D])_([A-Z0-9]{2})_SLC__1([SA])([SDHV]{2})_(\d{8}T\d{6})_(\d{8}T\d{6})_(\d{6})_([0-9A-F]{6})_([0-9A-F]{4})$`)

// Name is a parsed Sentinel-1 SLC product name.
type Name struct {
	Product       string // name without .SAFE or .zip
	Mission       string // S1A, S1B, S1C, S1D
	Mode          string // IW, EW, WV, S1..S6
	Class         string // S (standard) or A (annotation)
	Polarisation  string // SH, SV, DH, DV, HH, VV...
	Start         time.Time
	Stop          time.Time
	AbsoluteOrbit int
	Datatake      string
	ID            string
}

// ProductName strips directory, ".zip" and ".SAFE" from a file name.
func ProductName(filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, ".zip")
	base = strings.TrimSuffix(base, ".SAFE")
	return base
}

// ParseName parses an SLC archive or SAFE directory name. Directory
// components and ".zip"/".SAFE" suffixes are ignored.
func ParseName(filename string) (Name, error) {
	product := ProductName(filename)
	m := namePattern.FindStringSubmatch(product)
	if m == nil {
		return Name{}, fmt.Errorf("%w: %s", ErrInvalidName, filepath.Base(filename))
	}

	start, err := time.Parse(timeLayout, m[5])
	if err != nil {
		return Name{}, fmt.Errorf("%w: start time %s: %v", ErrInvalidName, m[5], err)
	}
	stop, err := time.Parse(timeLayout, m[6])
	if err != nil {
		return Name{}, fmt.Errorf("%w: stop time %s: %v", ErrInvalidName, m[6], err)
	}
	orbit, _ := strconv.Atoi(m[7])

	return Name{
		Product:       product,
		Mission:       m[1],
		Mode:          m[2],
		Class:         m[3],
		Polarisation:  m[4],
		Start:         start,
		Stop:          stop,
		AbsoluteOrbit: orbit,
		Datatake:      m[8],
		ID:            m[9],
	}, nil
}

// AcquisitionDate is the UTC calendar day of the sensing start.
func (n Name) AcquisitionDate() time.Time {
	y, mo, d := n.Start.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// SafeDir is the directory name the archive extracts to.
func (n Name) SafeDir() string {
	return n.Product + ".SAFE"
}
