// Package feedservice serves the latest synthesized gtfs-realtime feeds over http and streams new messages to
// websocket clients.
package feedservice

import (
	"context"
	logger "log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/gorilla/mux"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"google.golang.org/protobuf/proto"
)

// FeedService keeps the latest entity of each kind and makes them available to http and websocket clients
type FeedService struct {
	log                *logger.Logger
	collection         *feedCollection
	hub                *streamHub
	expireAfterSeconds int
}

// NewFeedService creates FeedService. Entities older than expireAfterSeconds are no longer served, 0 serves every
// entity until a newer one with the same id replaces it.
func NewFeedService(log *logger.Logger, expireAfterSeconds int) *FeedService {
	return &FeedService{
		log:                log,
		collection:         makeFeedCollection(),
		hub:                makeStreamHub(log),
		expireAfterSeconds: expireAfterSeconds,
	}
}

// Record stores message's entities and sends it to websocket clients
func (s *FeedService) Record(_ context.Context, kind feed.Kind, message *gtfsrt.FeedMessage) error {
	s.collection.addMessage(kind, message)
	if s.expireAfterSeconds > 0 {
		removed, currentSize := s.collection.expireEntities(time.Now(), s.expireAfterSeconds)
		if removed > 0 {
			s.log.Printf("expired %d entities, %d remain", removed, currentSize)
		}
	}
	if s.hub.clientCount() == 0 {
		return nil
	}
	data, err := makeStreamMessage(kind, message)
	if err != nil {
		return err
	}
	s.hub.broadcast(data)
	return nil
}

// buildFeedMessage retrieves current entities of kind as of "now" and builds a gtfsrt.FeedMessage from them
func (s *FeedService) buildFeedMessage(kind feed.Kind, now time.Time) *gtfsrt.FeedMessage {
	feedMessage := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String(feed.GtfsRealtimeVersion),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: []*gtfsrt.FeedEntity{},
	}
	nowSeconds := now.Unix()
	for _, e := range s.collection.entityList(kind) {
		if s.expireAfterSeconds <= 0 || nowSeconds-int64(e.timestamp) < int64(s.expireAfterSeconds) {
			feedMessage.Entity = append(feedMessage.Entity, e.entity)
		}
	}
	return feedMessage
}

//defaultHttpHandler simple default http handler for default route
type defaultHttpHandler struct {
}

//ServeHTTP implements defaultHttpHandler http.Handler interface
func (h *defaultHttpHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

//gtfsFeedHandler responds to requests for one kind of feed
type gtfsFeedHandler struct {
	log     *logger.Logger
	service *FeedService
}

//ServeHTTP implements gtfsFeedHandler's http.Handler interface
func (g *gtfsFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kind, err := feed.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	feedMessage := g.service.buildFeedMessage(kind, time.Now())

	asText := strings.ToLower(r.FormValue("text")) == "true"
	asJson := strings.ToLower(r.FormValue("json")) == "true"
	switch {
	case asJson:
		g.writeJSON(feedMessage, w)
	case asText:
		g.writeProtocolBufferAsText(feedMessage, w)
	default:
		g.writeProtocolBuffer(feedMessage, w)
	}
}

//writeProtocolBuffer marshal gtfsrt.FeedMessage as protocol buffer to http.ResponseWriter
func (g *gtfsFeedHandler) writeProtocolBuffer(feedMessage *gtfsrt.FeedMessage, w http.ResponseWriter) {
	bytes, err := feed.Marshal(feedMessage)
	if err != nil {
		g.log.Printf("Failed to marshal gtfsrt.FeedMessage to bytes, error:%s", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/grtfeed")
	bytesWritten, err := w.Write(bytes)
	if err != nil {
		g.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
		return
	}
	g.log.Printf("wrote %d bytes for grtfeed", bytesWritten)
}

//writeProtocolBufferAsText write plain text formatting of gtfsrt.FeedMessage to http.ResponseWriter
func (g *gtfsFeedHandler) writeProtocolBufferAsText(feedMessage *gtfsrt.FeedMessage, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	bytesWritten, err := w.Write([]byte(feed.FormatText(feedMessage)))
	if err != nil {
		g.log.Printf("Error writing bytes to http.ResponseWriter, error:%s", err)
		return
	}
	g.log.Printf("wrote %d bytes for grtfeed in text format", bytesWritten)
}

//writeJSON write gtfsrt.FeedMessage using the protocol buffer json mapping
func (g *gtfsFeedHandler) writeJSON(feedMessage *gtfsrt.FeedMessage, w http.ResponseWriter) {
	jsonData, err := feed.MarshalJSON(feedMessage)
	if err != nil {
		g.log.Printf("Error marshaling feed message to json: error:%v\n", err)
		http.Error(w, "Error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	byteCount, err := w.Write(jsonData)
	if err != nil {
		g.log.Printf("Error writing json response: %s", err)
		return
	}
	g.log.Printf("wrote %d bytes in json response.", byteCount)
}

// Handler routes feed, stream and metrics requests. metricsHandler may be nil.
func (s *FeedService) Handler(metricsHandler http.Handler) http.Handler {
	r := mux.NewRouter()
	r.Handle("/", &defaultHttpHandler{})
	r.Handle("/feed/{kind}", &gtfsFeedHandler{log: s.log, service: s}).Methods(http.MethodGet)
	r.Handle("/stream", s.hub)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	return r
}

//createServer creates configured http.Server for responding to gtfs-rt feed requests
func createServer(service *FeedService, metricsHandler http.Handler, httpPort int) *http.Server {
	srv := &http.Server{
		Addr: strings.Join([]string{"0.0.0.0", strconv.Itoa(httpPort)}, ":"),
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      service.Handler(metricsHandler),
	}
	return srv
}

// RunWebService starts up the feed web service, and terminates on shutdown signal. Calls wg.Done when the service
// has stopped.
func RunWebService(log *logger.Logger,
	wg *sync.WaitGroup,
	service *FeedService,
	metricsHandler http.Handler,
	httpPort int,
	shutdownSignal chan bool,
) {
	defer wg.Done()
	srv := createServer(service, metricsHandler, httpPort)
	log.Printf("Starting server on port %d", httpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("server ListenAndServe ended. %s", err)
		}
	}()

	<-shutdownSignal
	log.Printf("ending webservice on shutdown signal")
	service.hub.closeAll()
	shutdownCtx, serverCancelFunc := context.WithTimeout(context.Background(), time.Duration(5)*time.Second)
	defer serverCancelFunc()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Printf("error shutting down webservice, error:%s", err)
	}
}
