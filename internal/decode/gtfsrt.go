package decode

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// RealtimeFeed is the decoded form of one GTFS-RT binary feed: the header
// plus the feed's vehicle and trip update entities, in wire order. The
// protobuf messages are kept as-is so that optional fields remain
// distinguishable from zero values; the normalizer is the only consumer.
type RealtimeFeed struct {
	// HeaderTimestamp is the feed generation time in Unix seconds, 0 when
	// the header omits it.
	HeaderTimestamp uint64
	Vehicles        []*gtfs.VehiclePosition
	TripUpdates     []*gtfs.TripUpdate
	// EntityIDs holds the FeedEntity id for each vehicle (by index); trip
	// updates carry their identity in the trip descriptor itself.
	VehicleEntityIDs []string
}

// GTFSRealtime parses a GTFS-RT FeedMessage. Entities that are neither
// vehicle positions nor trip updates (alerts ride separate JSON feeds here)
// are skipped, not errors.
func GTFSRealtime(feedName string, raw []byte) (*RealtimeFeed, error) {
	var message gtfs.FeedMessage
	if err := proto.Unmarshal(raw, &message); err != nil {
		return nil, &Error{Feed: feedName, Err: err}
	}

	decoded := &RealtimeFeed{
		HeaderTimestamp: message.GetHeader().GetTimestamp(),
	}
	for _, entity := range message.GetEntity() {
		switch {
		case entity.GetVehicle() != nil:
			decoded.Vehicles = append(decoded.Vehicles, entity.GetVehicle())
			decoded.VehicleEntityIDs = append(decoded.VehicleEntityIDs, entity.GetId())
		case entity.GetTripUpdate() != nil:
			decoded.TripUpdates = append(decoded.TripUpdates, entity.GetTripUpdate())
		}
	}
	return decoded, nil
}
