package gtfsmanager

import (
	"archive/zip"
	"bytes"
	"log"
	"testing"
)

type testLogWriter struct {
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "AVL_FEED : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// makeTestZip builds a zip archive holding files keyed by name
func makeTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for name, contents := range files {
		f, err := writer.Create(name)
		if err != nil {
			t.Fatalf("unable to create zip entry %s: %v", name, err)
		}
		if _, err = f.Write([]byte(contents)); err != nil {
			t.Fatalf("unable to write zip entry %s: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("unable to close zip: %v", err)
	}
	return buffer.Bytes()
}

func getTestGTFSFiles() map[string]string {
	return map[string]string{
		"routes.txt": "\uFEFFroute_id,route_long_name,route_type,route_color,route_text_color\n" +
			"100,Blue Line,0,084C8D,FFFFFF\n",
		"trips.txt": "route_id,service_id,trip_id,direction_id,shape_id\n" +
			"100,W,t1,0,s1\n" +
			"100,W,t2,1,s1\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"A,Alpha,45.5,-122.6\n" +
			"B,\"Bravo, North\",45.6,-122.7\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"t1,06:10:00,06:10:00,B,2\n" +
			"t1,06:00:00,06:00:00,A,1\n" +
			"t2,25:00:00,25:00:00,A\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"W,1,1,1,1,1,0,0,20200101,20201231\n",
	}
}
