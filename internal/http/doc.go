// Package http provides the HTTP client used for orbit listings and downloads.
//
// This package handles:
//   - Connection pooling for parallel downloads
//   - A fixed User-Agent header on every request
//   - Retry with exponential backoff on transport errors and 5xx responses
//   - Typed errors for 404, 403 and 401 responses
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    Timeout:       10 * time.Minute,
//	    RetryAttempts: 5,
//	    UserAgent:     "Mozilla/5.0",
//	})
//
//	// Small documents
//	listing, err := client.GetBytes(ctx, "https://s1qc.asf.alaska.edu/aux_poeorb/")
//
//	// Streamed bodies
//	resp, err := client.Get(ctx, fileURL)
//	defer resp.Body.Close()
package http
