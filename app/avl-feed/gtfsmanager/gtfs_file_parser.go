package gtfsmanager

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"sort"
	"time"

	"github.com/iqskr/AVLSystem/business/data/gtfs"
)

// gtfsFileParser holds information about a cvs file and reads its rows as gtfs.Record keyed by header
type gtfsFileParser struct {
	Filename       string
	line           int
	cvsReader      *csv.Reader
	headers        []string
	currentRecords []string
}

// makeGTFSFileParser creates new gtfsFileParser from io.Reader
func makeGTFSFileParser(r io.Reader, filename string) (*gtfsFileParser, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("unable to load header in %s file: %w", filename, err)
	}
	removeBOMIfPresent(headers)
	return &gtfsFileParser{
		Filename:       filename,
		line:           1,
		cvsReader:      csvReader,
		headers:        headers,
		currentRecords: headers,
	}, nil
}

func removeBOMIfPresent(headers []string) {
	if len(headers) < 1 {
		return
	}
	firstHeader := headers[0]
	if len(firstHeader) < 1 {
		return
	}
	runes := []rune(firstHeader) // convert string to runes
	if runes[0] == '\uFEFF' {    //check for BOM
		headers[0] = string(runes[1:])
	}
}

// nextLine moves csvReader one line forward
func (C *gtfsFileParser) nextLine() error {
	var err error
	C.currentRecords, err = C.cvsReader.Read()
	C.line += 1
	return err
}

// currentRecord returns the current line keyed by header. Columns missing at the end of short lines are empty
func (C *gtfsFileParser) currentRecord() gtfs.Record {
	record := make(gtfs.Record, len(C.headers))
	for i, header := range C.headers {
		if i < len(C.currentRecords) {
			record[header] = C.currentRecords[i]
		} else {
			record[header] = ""
		}
	}
	return record
}

// readAll reads every remaining row in the file
func (C *gtfsFileParser) readAll() ([]gtfs.Record, error) {
	results := make([]gtfs.Record, 0)
	for {
		err := C.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("in file %v, line %v: %w", C.Filename, C.line, err)
		}
		results = append(results, C.currentRecord())
	}
	return results, nil
}

// gtfsFiles holds all gtfs files that we know how to load
type gtfsFiles struct {
	routeFile        *zip.File
	tripFile         *zip.File
	stopFile         *zip.File
	stopTimeFile     *zip.File
	calendarFile     *zip.File
	calendarDateFile *zip.File
}

// newGTFSFiles finds the gtfs files in zipReader, files may be inside a folder
func newGTFSFiles(zipReader *zip.Reader) *gtfsFiles {
	files := gtfsFiles{}
	//iterate over each file
	for _, f := range zipReader.File {
		if f.FileInfo().IsDir() {
			//ignore folders
			continue
		}
		switch path.Base(f.Name) {
		case "routes.txt":
			files.routeFile = f
		case "trips.txt":
			files.tripFile = f
		case "stops.txt":
			files.stopFile = f
		case "stop_times.txt":
			files.stopTimeFile = f
		case "calendar.txt":
			files.calendarFile = f
		case "calendar_dates.txt":
			files.calendarDateFile = f
		}
	}
	return &files
}

// getMissingFiles returns the names of files not present in the archive
func getMissingFiles(files *gtfsFiles) []string {
	missingFileNames := make([]string, 0)
	named := map[string]*zip.File{
		"routes.txt":         files.routeFile,
		"trips.txt":          files.tripFile,
		"stops.txt":          files.stopFile,
		"stop_times.txt":     files.stopTimeFile,
		"calendar.txt":       files.calendarFile,
		"calendar_dates.txt": files.calendarDateFile,
	}
	for name, f := range named {
		if f == nil {
			missingFileNames = append(missingFileNames, name)
		}
	}
	sort.Strings(missingFileNames)
	return missingFileNames
}

// readGTFSZip reads the gtfs tables from zip archive data. Files missing from the archive produce nil tables
func readGTFSZip(log *log.Logger, data []byte) (gtfs.RawTables, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return gtfs.RawTables{}, fmt.Errorf("unable to open gtfs zip archive: %w", err)
	}
	files := newGTFSFiles(zipReader)
	if missing := getMissingFiles(files); len(missing) > 0 {
		log.Printf("gtfs zip archive is missing the following file(s) %v", missing)
	}

	var tables gtfs.RawTables
	loads := []struct {
		file  *zip.File
		table *[]gtfs.Record
	}{
		{file: files.routeFile, table: &tables.Routes},
		{file: files.tripFile, table: &tables.Trips},
		{file: files.stopFile, table: &tables.Stops},
		{file: files.stopTimeFile, table: &tables.StopTimes},
		{file: files.calendarFile, table: &tables.Calendar},
		{file: files.calendarDateFile, table: &tables.CalendarDates},
	}
	for _, load := range loads {
		if load.file == nil {
			continue
		}
		*load.table, err = loadGtfsFile(log, load.file)
		if err != nil {
			return gtfs.RawTables{}, err
		}
	}
	return tables, nil
}

// loadGtfsFile reads every row in zipped gtfs file f
func loadGtfsFile(log *log.Logger, f *zip.File) ([]gtfs.Record, error) {
	start := time.Now()
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	parser, err := makeGTFSFileParser(rc, f.Name)
	if errors.Is(err, io.EOF) {
		log.Printf("file %s is empty", f.Name)
		return []gtfs.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	records, err := parser.readAll()
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %d rows in file %s in %s", len(records), parser.Filename, time.Since(start))
	return records, nil
}
