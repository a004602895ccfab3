package model

import "time"

// Stream is a video feed bound to a physical location.  CurrentPassageID
// is a weak pointer to whichever passage is LIVE at that location right
// now; it is recomputed by the stream binder after every transition and
// is never authoritative on its own.
//
// Fields:
//  ID               – primary key (24 hex chars).
//  Name             – display name of the feed.
//  URL              – playback URL.
//  Location         – venue the camera covers.
//  IsLive           – whether the feed itself is on air.
//  CurrentPassageID – LIVE passage at Location, nil when nothing is live.
type Stream struct {
	ID               string    // streams.id
	Name             string    // streams.name
	URL              string    // streams.url
	Location         string    // streams.location
	IsLive           bool      // streams.is_live
	CurrentPassageID *string   // streams.current_passage_id
	CreatedAt        time.Time // streams.created_at
	UpdatedAt        time.Time // streams.updated_at
}
