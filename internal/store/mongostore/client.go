// Package mongostore persists the document-shaped Meeting Repository
// (spec §4.D), grounded on S4tyendra-public-vc's models.go bson-tag
// conventions, generalized from its flat Room document to the nested
// participants/chat/transcripts/recording document this spec requires.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials Mongo and returns the named database handle, ready for
// repository construction.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client.Database(dbName), nil
}

const (
	CollMeetings   = "meetings"
	CollMinutes    = "meeting_minutes"
	CollRecordings = "recordings"
)
