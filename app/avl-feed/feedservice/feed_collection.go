package feedservice

import (
	"sort"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/feed"
)

// entityWrapper holds a feed entity with the timestamp of the message it arrived in
type entityWrapper struct {
	timestamp uint64
	entity    *gtfsrt.FeedEntity
}

// feedCollection contains the latest entity of each kind by entity id and provides thread safe access to them
type feedCollection struct {
	mu       sync.Mutex
	entities map[feed.Kind]map[string]*entityWrapper
}

// makeFeedCollection feedCollection factory
func makeFeedCollection() *feedCollection {
	entities := make(map[feed.Kind]map[string]*entityWrapper)
	for _, kind := range feed.Kinds {
		entities[kind] = make(map[string]*entityWrapper)
	}
	return &feedCollection{entities: entities}
}

// addMessage stores each entity in message, discarding any that are older than the entity already stored with the
// same id. Returns the number of entities stored.
func (c *feedCollection) addMessage(kind feed.Kind, message *gtfsrt.FeedMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	byId, present := c.entities[kind]
	if !present {
		byId = make(map[string]*entityWrapper)
		c.entities[kind] = byId
	}
	timestamp := message.GetHeader().GetTimestamp()
	stored := 0
	for _, entity := range message.GetEntity() {
		if previous, present := byId[entity.GetId()]; present && previous.timestamp > timestamp {
			continue
		}
		byId[entity.GetId()] = &entityWrapper{timestamp: timestamp, entity: entity}
		stored++
	}
	return stored
}

// entityList returns the entities of kind currently stored ordered by entity id
func (c *feedCollection) entityList(kind feed.Kind) []*entityWrapper {
	c.mu.Lock()
	defer c.mu.Unlock()
	results := make([]*entityWrapper, 0, len(c.entities[kind]))
	for _, e := range c.entities[kind] {
		results = append(results, e)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].entity.GetId() < results[j].entity.GetId()
	})
	return results
}

// expireEntities removes all entities that are older than expireAfterSeconds as of at.
// returns the number of entities that have been removed and how many are currently stored.
func (c *feedCollection) expireEntities(at time.Time, expireAfterSeconds int) (removed int, currentSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := at.Unix()
	for _, byId := range c.entities {
		for id, e := range byId {
			if now-int64(e.timestamp) >= int64(expireAfterSeconds) {
				delete(byId, id)
				removed++
			}
		}
		currentSize += len(byId)
	}
	return removed, currentSize
}
