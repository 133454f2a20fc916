package models

import (
	"strings"
	"testing"
	"time"
)

func TestPositionMapLink(t *testing.T) {
	p := Position{Latitude: 17.385044, Longitude: 78.486671}
	link := p.MapLink()
	if !strings.HasPrefix(link, "https://www.openstreetmap.org/?mlat=17.385044") {
		t.Errorf("unexpected map link %q", link)
	}
	if !strings.Contains(link, "zoom=16") {
		t.Errorf("map link should pin zoom, got %q", link)
	}
}

func TestPositionNewerThan(t *testing.T) {
	base := time.Now()
	older := Position{CapturedAt: base}
	newer := Position{CapturedAt: base.Add(time.Second)}

	if !newer.NewerThan(&older) {
		t.Error("later capture should be newer")
	}
	if older.NewerThan(&newer) {
		t.Error("earlier capture should not be newer")
	}
	if !older.NewerThan(nil) {
		t.Error("any sample is newer than none")
	}
	if older.NewerThan(&older) {
		t.Error("equal timestamps are not newer")
	}
}
