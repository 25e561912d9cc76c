package feed

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

const (
	defaultAlertHeader      = "Service Alert"
	defaultAlertDescription = "No details available"
	// DefaultAlertDuration is how long an alert stays active when no duration is given
	DefaultAlertDuration = time.Hour
	// AllRoutesEntity is the informed route id used when an alert names no affected entities
	AllRoutesEntity = "all_routes"
)

// ErrInvalidAlert is wrapped by every error returned by BuildServiceAlert
var ErrInvalidAlert = errors.New("invalid service alert")

// AlertInput describes a service alert to publish. Unset fields take defaults when the alert is built.
type AlertInput struct {
	Id          string `yaml:"id" json:"id"`
	Header      string `yaml:"header" json:"header"`
	Description string `yaml:"description" json:"description"`
	// DurationSeconds is how long the alert is active from the time it is built
	DurationSeconds *int64 `yaml:"duration" json:"duration"`
	// AffectedEntities are route ids informed by the alert
	AffectedEntities []string `yaml:"affected_entities" json:"affected_entities"`
	// Cause and Effect are gtfs-realtime Alert.Cause and Alert.Effect enum numbers
	Cause  *int32 `yaml:"cause" json:"cause"`
	Effect *int32 `yaml:"effect" json:"effect"`
}

type alertsFile struct {
	Alerts []AlertInput `yaml:"alerts"`
}

// ParseAlertInputs decodes alerts from yaml or json data of the form {"alerts": [...]}
// Alerts without an id are given one derived from their content, so the same alert keeps its entity id when
// the data is parsed again.
func ParseAlertInputs(data []byte) ([]AlertInput, error) {
	var file alertsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse alerts: %w", err)
	}
	for i := range file.Alerts {
		if len(file.Alerts[i].Id) == 0 {
			file.Alerts[i].Id = contentAlertId(file.Alerts[i])
		}
	}
	return file.Alerts, nil
}

func contentAlertId(in AlertInput) string {
	content := strings.Join([]string{in.Header, in.Description, strings.Join(in.AffectedEntities, ",")}, "\x1f")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(content)).String()
}

// BuildServiceAlert creates a service alert message from in, active from now. The entity id is "alert_" followed
// by in.Id, or a generated id when in.Id is empty.
// Returns error wrapping ErrInvalidAlert if the duration is negative or the cause or effect is not a known code.
func BuildServiceAlert(in AlertInput, now time.Time) (*gtfsrt.FeedMessage, error) {
	duration := DefaultAlertDuration
	if in.DurationSeconds != nil {
		if *in.DurationSeconds < 0 {
			return nil, fmt.Errorf("%w: negative duration %d", ErrInvalidAlert, *in.DurationSeconds)
		}
		duration = time.Duration(*in.DurationSeconds) * time.Second
	}

	cause := gtfsrt.Alert_UNKNOWN_CAUSE
	if in.Cause != nil {
		if _, known := gtfsrt.Alert_Cause_name[*in.Cause]; !known {
			return nil, fmt.Errorf("%w: unknown cause %d", ErrInvalidAlert, *in.Cause)
		}
		cause = gtfsrt.Alert_Cause(*in.Cause)
	}

	effect := gtfsrt.Alert_UNKNOWN_EFFECT
	if in.Effect != nil {
		if _, known := gtfsrt.Alert_Effect_name[*in.Effect]; !known {
			return nil, fmt.Errorf("%w: unknown effect %d", ErrInvalidAlert, *in.Effect)
		}
		effect = gtfsrt.Alert_Effect(*in.Effect)
	}

	id := in.Id
	if len(id) == 0 {
		id = uuid.NewString()
	}

	affected := in.AffectedEntities
	if len(affected) == 0 {
		affected = []string{AllRoutesEntity}
	}
	informed := make([]*gtfsrt.EntitySelector, 0, len(affected))
	for _, routeId := range affected {
		informed = append(informed, &gtfsrt.EntitySelector{RouteId: proto.String(routeId)})
	}

	entity := &gtfsrt.FeedEntity{
		Id: proto.String("alert_" + id),
		Alert: &gtfsrt.Alert{
			ActivePeriod: []*gtfsrt.TimeRange{{
				Start: proto.Uint64(uint64(now.Unix())),
				End:   proto.Uint64(uint64(now.Add(duration).Unix())),
			}},
			InformedEntity:  informed,
			Cause:           cause.Enum(),
			Effect:          effect.Enum(),
			HeaderText:      makeTranslatedString(in.Header, defaultAlertHeader),
			DescriptionText: makeTranslatedString(in.Description, defaultAlertDescription),
		},
	}
	return makeFeedMessage(now, entity), nil
}

func makeTranslatedString(text string, def string) *gtfsrt.TranslatedString {
	if len(text) == 0 {
		text = def
	}
	return &gtfsrt.TranslatedString{
		Translation: []*gtfsrt.TranslatedString_Translation{{Text: proto.String(text)}},
	}
}
