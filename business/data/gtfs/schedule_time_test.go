package gtfs

import (
	"strconv"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{name: "morning", value: "06:53:02", want: (6 * 60 * 60) + (53 * 60) + 2},
		{name: "single digit hour", value: "6:53:02", want: (6 * 60 * 60) + (53 * 60) + 2},
		{name: "past midnight", value: "25:35:00", want: (25 * 60 * 60) + (35 * 60)},
		{name: "midnight", value: "00:00:00", want: 0},
		{name: "missing seconds", value: "06:53", wantErr: true},
		{name: "letters", value: "ab:cd:ef", wantErr: true},
		{name: "minutes out of range", value: "06:75:00", wantErr: true},
		{name: "empty", value: "", wantErr: true},
		{name: "past maximum", value: "49:00:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseScheduleTime(%q) produced no error, but we want one", tt.value)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseScheduleTime(%q) error = %v", tt.value, err)
				return
			}
			if got != tt.want {
				t.Errorf("ParseScheduleTime(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFormatScheduleTime(t *testing.T) {
	is := is.New(t)
	is.Equal(FormatScheduleTime(0), "00:00:00")
	is.Equal(FormatScheduleTime((6*60*60)+(53*60)+2), "06:53:02")
	is.Equal(FormatScheduleTime((25*60*60)+(35*60)), "25:35:00")
}

func TestMakeScheduleTime(t *testing.T) {
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("unable to load location: %v", err)
	}
	tests := []struct {
		giveServiceDate time.Time
		giveSeconds     int
		want            time.Time
	}{
		{
			giveServiceDate: time.Date(2019, 11, 19, 0, 0, 0, 0, location),
			giveSeconds:     (10 * 60 * 60) + 30,
			want:            time.Date(2019, 11, 19, 10, 0, 30, 0, location),
		},
		{
			//trip past midnight ends up on the next calendar day
			giveServiceDate: time.Date(2019, 11, 19, 0, 0, 0, 0, location),
			giveSeconds:     (25 * 60 * 60) + (35 * 60),
			want:            time.Date(2019, 11, 20, 1, 35, 0, 0, location),
		},
		{
			//daylight saving time starts
			giveServiceDate: time.Date(2020, 3, 8, 0, 0, 0, 0, location),
			giveSeconds:     10 * 60 * 60,
			want:            time.Date(2020, 3, 8, 10, 0, 0, 0, location),
		},
		{
			//daylight saving time ends
			giveServiceDate: time.Date(2020, 11, 1, 0, 0, 0, 0, location),
			giveSeconds:     10 * 60 * 60,
			want:            time.Date(2020, 11, 1, 10, 0, 0, 0, location),
		},
	}
	for row, tt := range tests {
		t.Run("row: "+strconv.Itoa(row), func(t *testing.T) {
			is := is.New(t)
			got := MakeScheduleTime(tt.giveServiceDate, tt.giveSeconds)
			is.Equal(got.Unix(), tt.want.Unix())
		})
	}
}

func TestParseServiceDate(t *testing.T) {
	is := is.New(t)
	got, err := ParseServiceDate("20180913")
	is.NoErr(err)
	is.Equal(got, time.Date(2018, 9, 13, 0, 0, 0, 0, time.UTC))
	is.Equal(FormatServiceDate(got), "20180913")

	_, err = ParseServiceDate("2018-09-13")
	is.True(err != nil)
}

func TestSecondsSinceMidnight(t *testing.T) {
	is := is.New(t)
	at := time.Date(2020, 7, 1, 14, 5, 9, 500, time.UTC)
	is.Equal(SecondsSinceMidnight(at), (14*60*60)+(5*60)+9)
	is.Equal(Get12AmTime(at), time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC))
}
