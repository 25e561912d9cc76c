package synthesis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/iqskr/AVLSystem/business/data/feedarchive"
	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"
)

// FileRecorder writes each message to <directory>/<kind>s/<kind>_<YYYYMMDD_HHMMSS>.pb named by the message's
// header timestamp in local time
type FileRecorder struct {
	log       *log.Logger
	directory string
}

// NewFileRecorder creates FileRecorder writing below directory
func NewFileRecorder(log *log.Logger, directory string) *FileRecorder {
	return &FileRecorder{
		log:       log,
		directory: directory,
	}
}

// Record implements FeedRecorder
func (f *FileRecorder) Record(_ context.Context, kind feed.Kind, message *gtfsrt.FeedMessage) error {
	data, err := feed.Marshal(message)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", kind, err)
	}
	path := FeedFilePath(f.directory, kind, time.Unix(int64(message.GetHeader().GetTimestamp()), 0))
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err = os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	f.log.Printf("saved %s to %s", kind, path)
	return nil
}

// FeedFilePath returns the path a message of kind stamped at is written to
func FeedFilePath(directory string, kind feed.Kind, at time.Time) string {
	name := fmt.Sprintf("%s_%s.pb", kind, at.Format("20060102_150405"))
	return filepath.Join(directory, string(kind)+"s", name)
}

// natsPublisher is the part of *nats.Conn NATSRecorder uses
type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSRecorder publishes each message in wire format on subject <prefix>.<kind>
type NATSRecorder struct {
	log           *log.Logger
	conn          natsPublisher
	subjectPrefix string
}

// NewNATSRecorder creates NATSRecorder publishing over conn
func NewNATSRecorder(log *log.Logger, conn *nats.Conn, subjectPrefix string) *NATSRecorder {
	return makeNATSRecorder(log, conn, subjectPrefix)
}

func makeNATSRecorder(log *log.Logger, conn natsPublisher, subjectPrefix string) *NATSRecorder {
	return &NATSRecorder{
		log:           log,
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}
}

// Record implements FeedRecorder
func (n *NATSRecorder) Record(_ context.Context, kind feed.Kind, message *gtfsrt.FeedMessage) error {
	data, err := feed.Marshal(message)
	if err != nil {
		return fmt.Errorf("unable to encode %s: %w", kind, err)
	}
	subject := n.Subject(kind)
	if err = n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("unable to publish %s on %s: %w", kind, subject, err)
	}
	return nil
}

// Subject returns the subject messages of kind are published on
func (n *NATSRecorder) Subject(kind feed.Kind) string {
	if len(n.subjectPrefix) == 0 {
		return string(kind)
	}
	return n.subjectPrefix + "." + string(kind)
}

// ArchiveRecorder saves each message into the feed_message table
type ArchiveRecorder struct {
	db *sqlx.DB
}

// NewArchiveRecorder creates ArchiveRecorder saving to db
func NewArchiveRecorder(db *sqlx.DB) *ArchiveRecorder {
	return &ArchiveRecorder{db: db}
}

// Record implements FeedRecorder
func (a *ArchiveRecorder) Record(ctx context.Context, kind feed.Kind, message *gtfsrt.FeedMessage) error {
	return feedarchive.RecordFeedMessage(ctx, a.db, kind, message)
}
