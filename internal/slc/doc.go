// Package slc discovers and extracts Sentinel-1 SLC archives.
//
// Archives are the S1*.zip files in a download directory. Each archive
// becomes one batch.Task that extracts it into the SLC directory, writing one
// "[i/total] entry" line per zip entry to its task log. An archive whose
// <product>.SAFE directory already exists is skipped, so re-running the
// command only extracts what is missing.
//
// # Product names
//
// ParseName parses names of the form
//
//	S1A_IW_SLC__1SDV_20210213T101010_20210213T101037_036567_044B5C_1234.zip
//
// into mission, mode, polarisation, sensing start and stop, absolute orbit,
// datatake and product id.
package slc
