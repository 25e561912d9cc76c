// Package gtfsmanager provides support for retrieving, reading and parsing gtfs schedules into a gtfs.ScheduleIndex
package gtfsmanager

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iqskr/AVLSystem/business/data/gtfs"
	"github.com/iqskr/AVLSystem/foundation/httpclient"
)

// Config controls where and how often the gtfs schedule is retrieved
type Config struct {
	// URL of the gtfs zip file. A value without an http or https scheme is read as a local file path
	URL string
	// DownloadDirectory holds the zip file while it is read
	DownloadDirectory string
	// CheckInterval is the minimum time between checks of the remote file for changes
	CheckInterval time.Duration
	// ForceDownload bypasses the remote ETag and last modified check
	ForceDownload bool
}

// ScheduleLoader retrieves the gtfs schedule, reloading it only when the remote file changes.
// After the first successful load failures are logged and the last loaded schedule is kept.
type ScheduleLoader struct {
	log       *log.Logger
	cfg       Config
	current   *gtfs.ScheduleIndex
	lastCheck time.Time
}

// NewScheduleLoader creates ScheduleLoader
func NewScheduleLoader(log *log.Logger, cfg Config) *ScheduleLoader {
	return &ScheduleLoader{
		log: log,
		cfg: cfg,
	}
}

// FetchSchedule returns the current gtfs.ScheduleIndex, checking for an updated schedule when CheckInterval has
// passed since the last check.
// Returns error only if no schedule has ever been loaded.
func (l *ScheduleLoader) FetchSchedule(ctx context.Context) (*gtfs.ScheduleIndex, error) {
	now := time.Now()
	if l.current != nil && now.Sub(l.lastCheck) < l.cfg.CheckInterval {
		return l.current, nil
	}
	l.lastCheck = now

	index, err := l.update(ctx)
	if err != nil {
		if l.current == nil {
			return nil, err
		}
		l.log.Printf("unable to update gtfs schedule, keeping %v. error:%v", l.current.DataSet, err)
		return l.current, nil
	}
	if index != nil {
		l.log.Printf("loaded gtfs schedule %v %v", index.DataSet, index.Summary())
		l.current = index
	}
	return l.current, nil
}

// update loads the schedule if it has changed, returns nil index if there was no change
func (l *ScheduleLoader) update(ctx context.Context) (*gtfs.ScheduleIndex, error) {
	if !isRemote(l.cfg.URL) {
		return l.updateFromFile()
	}
	if l.cfg.ForceDownload {
		l.log.Printf("not checking remote gtfs file for new information, forcing load of gtfs file")
	} else if !l.shouldUpdateGTFSSchedule(ctx) {
		return nil, nil
	}
	return downloadGTFSSchedule(ctx, l.log, l.cfg.DownloadDirectory, l.cfg.URL)
}

func (l *ScheduleLoader) updateFromFile() (*gtfs.ScheduleIndex, error) {
	info, err := os.Stat(l.cfg.URL)
	if err != nil {
		return nil, err
	}
	if l.current != nil && !l.cfg.ForceDownload &&
		l.current.DataSet.LastModifiedTimestamp == info.ModTime().Unix() {
		return nil, nil
	}
	return LoadGTFSScheduleFromFile(l.log, l.cfg.URL)
}

// shouldUpdateGTFSSchedule compares the currently loaded gtfs.DataSet to what's available on the remote server.
// If it see's a difference returns true.
// On error logs and returns false.
func (l *ScheduleLoader) shouldUpdateGTFSSchedule(ctx context.Context) bool {
	if l.current == nil {
		l.log.Printf("no gtfs schedule loaded, performing initial load")
		return true
	}
	remoteFileInfo, err := httpclient.GetRemoteFileInfo(ctx, l.cfg.URL)
	if err != nil {
		l.log.Printf("unable to retrieve remote file information from '%s' error: %v", l.cfg.URL, err)
		return false
	}
	existing := l.current.DataSet
	if len(remoteFileInfo.ETag) == 0 && remoteFileInfo.LastModifiedTimestamp == 0 {
		l.log.Printf("unable to determine remote file timestamp or eTag, keeping loaded schedule")
		return false
	}
	if remoteFileInfo.IsDifferent(existing.ETag, existing.LastModifiedTimestamp) {
		l.log.Printf("remote file indicates new gtfs schedule available")
		return true
	}
	return false
}

// downloadGTFSSchedule downloads the gtfs zip file at url into localDownloadDirectory and reads it
func downloadGTFSSchedule(ctx context.Context,
	log *log.Logger,
	localDownloadDirectory string,
	url string) (*gtfs.ScheduleIndex, error) {

	if err := os.MkdirAll(localDownloadDirectory, os.ModePerm); err != nil {
		return nil, err
	}
	start := time.Now()
	localGtfsZipFile := filepath.Join(localDownloadDirectory, "gtfs.zip")
	log.Printf("downloading file from %s to %s", url, localGtfsZipFile)
	downloadedFile, err := httpclient.DownloadRemoteFile(ctx, localGtfsZipFile, url)

	//remove downloaded file after we are done
	defer func() {
		if _, err := os.Stat(localGtfsZipFile); err == nil {
			err = os.Remove(localGtfsZipFile)
			if err != nil {
				log.Printf("unable to remove downloaded file. error:%v", err)
			}
		}
	}()
	if err != nil {
		return nil, err
	}
	log.Printf("downloaded %v bytes in %s", downloadedFile.Size, downloadedFile.DownloadedAt.Sub(start))

	index, err := loadScheduleIndex(log, downloadedFile.LocalFilePath)
	if err != nil {
		return nil, err
	}
	index.DataSet = gtfs.DataSet{
		URL:                   downloadedFile.RemoteFileInfo.Path,
		ETag:                  downloadedFile.RemoteFileInfo.ETag,
		LastModifiedTimestamp: downloadedFile.RemoteFileInfo.LastModifiedTimestamp,
		DownloadedAt:          downloadedFile.DownloadedAt,
	}
	return index, nil
}

// LoadGTFSScheduleFromFile reads the local gtfs zip file at path
func LoadGTFSScheduleFromFile(log *log.Logger, path string) (*gtfs.ScheduleIndex, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	index, err := loadScheduleIndex(log, path)
	if err != nil {
		return nil, err
	}
	index.DataSet = gtfs.DataSet{
		URL:                   path,
		LastModifiedTimestamp: info.ModTime().Unix(),
		DownloadedAt:          time.Now(),
	}
	return index, nil
}

func loadScheduleIndex(log *log.Logger, path string) (*gtfs.ScheduleIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tables, err := readGTFSZip(log, data)
	if err != nil {
		return nil, err
	}
	return gtfs.BuildScheduleIndex(tables), nil
}

// PrintScheduleSummary writes the data set and record counts of index to w
func PrintScheduleSummary(w io.Writer, index *gtfs.ScheduleIndex) error {
	if _, err := fmt.Fprintln(w, index.DataSet); err != nil {
		return err
	}
	summary := index.Summary()
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s: %d\n", name, summary[name]); err != nil {
			return err
		}
	}
	return nil
}

func isRemote(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
