package entity

import (
	"context"
	"strconv"
	"time"

	"github.com/rivenhall/homegraph/internal/state"
)

// The developer simulator reports a placeholder snapshot URL instead of
// a working one; it is swapped for the simulator's snapshot endpoint.
const (
	simulatorSnapshotPlaceholderURL = "https://media.hearth.example.com/api/get_snapshot"
	simulatorSnapshotURL            = "https://developer.hearth.example.com/simulator/api/v1/devices/camera/snapshot"
)

// Camera is a typed view over one camera in the current snapshot.
type Camera struct {
	device
}

// NewCamera creates a view for the camera with the given serial.
func NewCamera(backend Backend, id string) *Camera {
	return &Camera{device: device{
		backend:  backend,
		category: state.CategoryCameras,
		put:      putCameras,
		id:       id,
	}}
}

// Model returns the hardware model name.
func (c *Camera) Model(ctx context.Context) (string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("model")
}

// SoftwareVersion returns the firmware version string.
func (c *Camera) SoftwareVersion(ctx context.Context) (string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("software_version")
}

// IsStreaming reports whether the camera is turned on and streaming.
func (c *Camera) IsStreaming(ctx context.Context) (bool, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_streaming")
}

// SetStreaming turns streaming on or off.
func (c *Camera) SetStreaming(ctx context.Context, on bool) error {
	return c.set(ctx, map[string]any{"is_streaming": on})
}

// IsAudioEnabled reports whether the microphone is enabled.
func (c *Camera) IsAudioEnabled(ctx context.Context) (bool, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_audio_input_enabled")
}

// IsVideoHistoryEnabled reports whether cloud video history is
// subscribed and recording.
func (c *Camera) IsVideoHistoryEnabled(ctx context.Context) (bool, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_video_history_enabled")
}

// IsPublicShareEnabled reports whether public sharing is on.
func (c *Camera) IsPublicShareEnabled(ctx context.Context) (bool, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_public_share_enabled")
}

// WebURL returns the camera's page in the consumer web app.
func (c *Camera) WebURL(ctx context.Context) (string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("web_url")
}

// SnapshotURL returns the still-frame capture URL. The simulator's
// non-functional placeholder is replaced with its working endpoint.
func (c *Camera) SnapshotURL(ctx context.Context) (string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return "", err
	}
	url, err := rec.String("snapshot_url")
	if err != nil {
		return "", err
	}
	if url == simulatorSnapshotPlaceholderURL {
		return simulatorSnapshotURL, nil
	}
	return url, nil
}

// LastOnlineChange returns when the camera's connectivity last changed.
func (c *Camera) LastOnlineChange(ctx context.Context) (time.Time, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("last_is_online_change")
}

// ActivityZones lists the user-defined detection zones.
func (c *Camera) ActivityZones(ctx context.Context) ([]ActivityZone, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := rec.Records("activity_zones")
	if err != nil {
		return nil, err
	}
	zones := make([]ActivityZone, 0, len(entries))
	for _, entry := range entries {
		id, err := zoneID(entry)
		if err != nil {
			return nil, err
		}
		name, err := entry.String("name")
		if err != nil {
			return nil, err
		}
		zones = append(zones, ActivityZone{ID: id, Name: name})
	}
	return zones, nil
}

// LastEvent returns the most recent detection event, or nil when the
// camera has not reported one.
func (c *Camera) LastEvent(ctx context.Context) (*CameraEvent, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return nil, err
	}
	if !rec.Has("last_event") {
		return nil, nil
	}
	event, err := rec.Record("last_event")
	if err != nil {
		return nil, err
	}
	return &CameraEvent{rec: event, now: time.Now}, nil
}

// MotionDetected reports whether motion is being detected right now: the
// last event saw motion and is still ongoing.
func (c *Camera) MotionDetected(ctx context.Context) (bool, error) {
	return c.detecting(ctx, (*CameraEvent).HasMotion)
}

// SoundDetected reports whether sound is being detected right now.
func (c *Camera) SoundDetected(ctx context.Context) (bool, error) {
	return c.detecting(ctx, (*CameraEvent).HasSound)
}

// PersonDetected reports whether a person is being detected right now.
func (c *Camera) PersonDetected(ctx context.Context) (bool, error) {
	return c.detecting(ctx, (*CameraEvent).HasPerson)
}

// HasOngoingMotionInZone reports whether an ongoing event saw motion in
// the given activity zone.
func (c *Camera) HasOngoingMotionInZone(ctx context.Context, zoneID int) (bool, error) {
	event, err := c.LastEvent(ctx)
	if err != nil || event == nil {
		return false, err
	}
	motion, err := event.HasMotion()
	if err != nil || !motion {
		return false, err
	}
	ongoing, err := event.IsOngoing()
	if err != nil || !ongoing {
		return false, err
	}
	return event.InZone(zoneID)
}

func (c *Camera) detecting(ctx context.Context, kind func(*CameraEvent) (bool, error)) (bool, error) {
	event, err := c.LastEvent(ctx)
	if err != nil || event == nil {
		return false, err
	}
	detected, err := kind(event)
	if err != nil || !detected {
		return false, err
	}
	return event.IsOngoing()
}

// MACAddress was removed from the protocol.
func (c *Camera) MACAddress(context.Context) (string, error) {
	return "", ErrDeprecated
}

// ActivityZone is one user-defined detection region of a camera frame.
type ActivityZone struct {
	ID   int
	Name string
}

// CameraEvent is one detection event reported by a camera.
type CameraEvent struct {
	rec state.Record
	now func() time.Time
}

// HasMotion reports whether the event saw motion.
func (e *CameraEvent) HasMotion() (bool, error) {
	return e.rec.Bool("has_motion")
}

// HasSound reports whether the event heard sound.
func (e *CameraEvent) HasSound() (bool, error) {
	return e.rec.Bool("has_sound")
}

// HasPerson reports whether the event saw a person.
func (e *CameraEvent) HasPerson() (bool, error) {
	return e.rec.Bool("has_person")
}

// Start returns when the event began.
func (e *CameraEvent) Start() (time.Time, error) {
	return e.rec.Time("start_time")
}

// End returns when the event ended. An ongoing event has no end time
// yet; that reads as the zero time with state.ErrFieldUnavailable.
func (e *CameraEvent) End() (time.Time, error) {
	return e.rec.Time("end_time")
}

// URLsExpireTime returns when the event's media URLs stop working.
func (e *CameraEvent) URLsExpireTime() (time.Time, error) {
	return e.rec.Time("urls_expire_time")
}

// ImageURL returns the event's still-frame URL.
func (e *CameraEvent) ImageURL() (string, error) {
	return e.rec.String("image_url")
}

// AnimatedImageURL returns the event's animated capture URL.
func (e *CameraEvent) AnimatedImageURL() (string, error) {
	return e.rec.String("animated_image_url")
}

// ActivityZoneIDs lists the zones the event touched.
func (e *CameraEvent) ActivityZoneIDs() ([]int, error) {
	entries, err := e.rec.StringSlice("activity_zone_ids")
	if err != nil {
		if e.rec.Has("activity_zone_ids") {
			return nil, err
		}
		return nil, nil
	}
	ids := make([]int, 0, len(entries))
	for _, raw := range entries {
		id, err := parseZoneID(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// zoneID reads a zone entry's id. The camera's zone list carries ids as
// JSON numbers, but older payloads used decimal strings; both are
// accepted.
func zoneID(entry state.Record) (int, error) {
	if id, err := entry.Int("id"); err == nil {
		return id, nil
	}
	raw, err := entry.String("id")
	if err != nil {
		return 0, err
	}
	return parseZoneID(raw)
}

// parseZoneID converts a decimal-string zone id, the form the event's
// activity_zone_ids list uses, to its numeric form.
func parseZoneID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrBadValue
	}
	return id, nil
}

// InZone reports whether the event touched the given activity zone.
func (e *CameraEvent) InZone(zoneID int) (bool, error) {
	ids, err := e.ActivityZoneIDs()
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == zoneID {
			return true, nil
		}
	}
	return false, nil
}

// IsOngoing reports whether the event is still in progress: it has no
// end time yet, its reported end precedes its start, or its end lies in
// the future.
func (e *CameraEvent) IsOngoing() (bool, error) {
	end, err := e.End()
	if err != nil {
		if e.rec.Has("end_time") {
			return false, err
		}
		return true, nil
	}
	start, err := e.Start()
	if err == nil && end.Before(start) {
		return true, nil
	}
	return end.After(e.now()), nil
}
