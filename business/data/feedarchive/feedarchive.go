// Package feedarchive records every emitted gtfs-realtime feed message in a postgres table so past feeds can be
// replayed or inspected.
package feedarchive

import (
	"context"
	"fmt"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/iqskr/AVLSystem/foundation/database"
	"github.com/jmoiron/sqlx"
)

// Schema creates the feed_message table if it's not present
const Schema = `create table if not exists feed_message
(
    id             bigserial primary key,
    kind           varchar(32)              not null,
    entity_id      varchar(255)             not null,
    feed_timestamp timestamp with time zone not null,
    payload        bytea                    not null,
    created_at     timestamp with time zone not null
);
create index if not exists feed_message_kind_timestamp on feed_message (kind, feed_timestamp)`

// FeedMessageRecord is a feed message as stored in the feed_message table
type FeedMessageRecord struct {
	Id       int64  `db:"id"`
	Kind     string `db:"kind"`
	EntityId string `db:"entity_id"`
	//FeedTimestamp is the timestamp from the message header
	FeedTimestamp time.Time `db:"feed_timestamp"`
	//Payload is the message in protocol buffer wire format
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// Message decodes the record's payload
func (r *FeedMessageRecord) Message() (*gtfsrt.FeedMessage, error) {
	return feed.Unmarshal(r.Payload)
}

// MakeFeedMessageRecord creates FeedMessageRecord for message
func MakeFeedMessageRecord(kind feed.Kind, message *gtfsrt.FeedMessage, createdAt time.Time) (*FeedMessageRecord, error) {
	payload, err := feed.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("unable to encode %s feed message: %w", kind, err)
	}
	entityId := ""
	if len(message.GetEntity()) > 0 {
		entityId = message.GetEntity()[0].GetId()
	}
	return &FeedMessageRecord{
		Kind:          string(kind),
		EntityId:      entityId,
		FeedTimestamp: time.Unix(int64(message.GetHeader().GetTimestamp()), 0).UTC(),
		Payload:       payload,
		CreatedAt:     createdAt.UTC(),
	}, nil
}

// EnsureSchema creates the feed_message table
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

// RecordFeedMessage saves message into the feed_message table
func RecordFeedMessage(ctx context.Context, db *sqlx.DB, kind feed.Kind, message *gtfsrt.FeedMessage) error {
	record, err := MakeFeedMessageRecord(kind, message, time.Now())
	if err != nil {
		return err
	}
	statementString := "insert into feed_message " +
		"(kind, " +
		"entity_id, " +
		"feed_timestamp, " +
		"payload, " +
		"created_at) " +
		"values " +
		"(:kind, " +
		":entity_id, " +
		":feed_timestamp, " +
		":payload, " +
		":created_at)"
	statementString = db.Rebind(statementString)
	_, err = db.NamedExecContext(ctx, statementString, record)
	return err
}

// GetFeedMessages retrieves up to limit records of kinds with a feed timestamp at or after since, newest first
func GetFeedMessages(ctx context.Context,
	db *sqlx.DB,
	kinds []feed.Kind,
	since time.Time,
	limit int) ([]FeedMessageRecord, error) {

	kindNames := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		kindNames = append(kindNames, string(kind))
	}
	statementString := "select * from feed_message where kind in (:kinds) and feed_timestamp >= :since " +
		"order by feed_timestamp desc, id desc limit :limit"
	query, args, err := database.PrepareNamedQueryFromMap(statementString, db, map[string]interface{}{
		"kinds": kindNames,
		"since": since.UTC(),
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}
	results := make([]FeedMessageRecord, 0)
	err = db.SelectContext(ctx, &results, query, args...)
	return results, err
}
