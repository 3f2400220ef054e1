// Package orbit finds and downloads Sentinel-1 precise orbit files.
//
// The orbit archive publishes an HTML index of EOF files named
//
//	S1A_OPER_AUX_POEORB_OPOD_<generated>_V<start>_<stop>.EOF
//
// A precise orbit file for an acquisition on day D is valid from D-1 to D+1.
// Match pairs every SLC acquisition with such a file of the same mission,
// and Downloader turns the matches into batch tasks that stream each file
// into a gocloud bucket, so the destination may be a local directory or an
// s3://, gs:// or mem:// bucket.
//
// Basic usage:
//
//	entries, err := orbit.FetchListing(ctx, client, orbit.DefaultListingURL)
//	matched, unmatched := orbit.Match(acquisitions, entries)
//	d := &orbit.Downloader{Client: client, Bucket: bucket}
//	tasks, err := d.Tasks(ctx, matched)
package orbit
