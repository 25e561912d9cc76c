// Package httpclient provides basic http functions
package httpclient

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RemoteFileInfo contains information
type RemoteFileInfo struct {
	ETag                  string
	LastModifiedTimestamp int64
	Path                  string
}

// Retry controls how failed requests are repeated. A zero MaxElapsedTime makes a single attempt
type Retry struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// StatusError is returned when the remote server responds with a status other than 200
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// GetRemoteFileInfo retrieves ETag and last modified timestamp from url using a HEAD request
func GetRemoteFileInfo(ctx context.Context, url string) (RemoteFileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return RemoteFileInfo{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return RemoteFileInfo{}, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return RemoteFileInfo{}, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return getRemoteFileInfo(url, resp), nil
}

func getRemoteFileInfo(url string, resp *http.Response) RemoteFileInfo {
	result := RemoteFileInfo{
		Path: url,
	}
	result.ETag = resp.Header.Get("ETag")

	lastModifiedString := resp.Header.Get("Last-Modified")

	if len(lastModifiedString) > 0 {
		parsedTime, err := time.Parse(time.RFC1123, lastModifiedString)
		if err == nil {
			result.LastModifiedTimestamp = parsedTime.Unix()
		}
	}
	return result

}

// IsDifferent returns true if etag (or lastModifiedTimestamp when no ETag is known) does not match df
func (df *RemoteFileInfo) IsDifferent(etag string, lastModifiedTimestamp int64) bool {
	if len(df.ETag) > 0 {
		return df.ETag != etag
	}
	return df.LastModifiedTimestamp != lastModifiedTimestamp
}

// DownloadedFile contains information about a file that has been downloaded to the local file system
type DownloadedFile struct {
	RemoteFileInfo RemoteFileInfo
	LocalFilePath  string
	Size           int64
	DownloadedAt   time.Time
}

// DownloadRemoteFile retrieves a file from a url to a local file destination.
// On success returns information about the file in DownloadedFile
func DownloadRemoteFile(ctx context.Context, destinationFileName string, url string) (*DownloadedFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	// Create the file
	out, err := os.Create(destinationFileName)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = out.Close()
	}()
	// Write the body to file
	bytesWritten, err := io.Copy(out, resp.Body)
	if err != nil {
		return nil, err
	}
	remoteFileInfo := getRemoteFileInfo(url, resp)

	result := DownloadedFile{
		RemoteFileInfo: remoteFileInfo,
		LocalFilePath:  destinationFileName,
		Size:           bytesWritten,
		DownloadedAt:   time.Now(),
	}
	return &result, err
}

// GetBytes retrieves the body of url, repeating failed attempts with exponential backoff according to retry.
// Client errors (4xx status) are not retried.
func GetBytes(ctx context.Context, log *log.Logger, url string, retry Retry) ([]byte, error) {
	policy := newBackOff(ctx, retry)
	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			body, err := getBytes(ctx, url)
			if err != nil && isPermanent(err) {
				return nil, backoff.Permanent(err)
			}
			return body, err
		},
		policy,
		func(err error, d time.Duration) {
			if log != nil {
				log.Printf("retrying %s in %s error:%v", url, d, err)
			}
		},
	)
}

func getBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func isPermanent(err error) bool {
	statusErr, ok := err.(*StatusError)
	if !ok {
		return false
	}
	return statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
}

func newBackOff(ctx context.Context, retry Retry) backoff.BackOff {
	if retry.MaxElapsedTime <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	initial := retry.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         retry.MaxElapsedTime,
		MaxElapsedTime:      retry.MaxElapsedTime,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithContext(b, ctx)
}
