// Package normalize maps decoder output into the unified entity model. All
// defaulting policy lives here: absent optional fields stay absent, absent
// timestamps become the fetch time, and unrecognized upstream enum codes map
// to the internal unknown/no-data values instead of failing.
package normalize

import (
	"strings"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/garima440/NYC-transit-hub/internal/decode"
	"github.com/garima440/NYC-transit-hub/internal/models"
)

// VehiclePositions maps the vehicle entities of a decoded binary feed.
func VehiclePositions(feed string, rt *decode.RealtimeFeed, fetchedAt time.Time) []models.Entity {
	entities := make([]models.Entity, 0, len(rt.Vehicles))
	for i, vehicle := range rt.Vehicles {
		trip := vehicle.GetTrip()

		v := &models.VehiclePosition{
			VehicleID:     vehicle.GetVehicle().GetId(),
			TripID:        trip.GetTripId(),
			RouteID:       trip.GetRouteId(),
			Direction:     copyUint32(trip.DirectionId),
			Status:        vehicleStatus(vehicle.CurrentStatus),
			CurrentStopID: vehicle.GetStopId(),
			ObservedAt:    fetchedAt.Unix(),
			SourceFeed:    feed,
		}
		// NYCT feeds omit the vehicle descriptor; the feed entity id is
		// the vehicle's identity there.
		if v.VehicleID == "" && i < len(rt.VehicleEntityIDs) {
			v.VehicleID = rt.VehicleEntityIDs[i]
		}
		if vehicle.Timestamp != nil {
			v.ObservedAt = int64(*vehicle.Timestamp)
		}
		// Position only when the wire marks both coordinates present;
		// 0.0 is a valid coordinate, so no zero-value sniffing.
		if pos := vehicle.GetPosition(); pos != nil && pos.Latitude != nil && pos.Longitude != nil {
			lat := float64(*pos.Latitude)
			lon := float64(*pos.Longitude)
			v.Latitude = &lat
			v.Longitude = &lon
			if pos.Bearing != nil {
				bearing := float64(*pos.Bearing)
				v.Bearing = &bearing
			}
		}
		entities = append(entities, models.VehicleEntity(v))
	}
	return entities
}

// TripUpdates maps the trip update entities of a decoded binary feed.
func TripUpdates(feed string, rt *decode.RealtimeFeed, fetchedAt time.Time) []models.Entity {
	entities := make([]models.Entity, 0, len(rt.TripUpdates))
	for _, update := range rt.TripUpdates {
		trip := update.GetTrip()

		t := &models.TripUpdate{
			TripID:               trip.GetTripId(),
			RouteID:              trip.GetRouteId(),
			Direction:            copyUint32(trip.DirectionId),
			StartTime:            trip.GetStartTime(),
			StartDate:            trip.GetStartDate(),
			ScheduleRelationship: tripRelationship(trip.ScheduleRelationship),
			ObservedAt:           fetchedAt.Unix(),
			SourceFeed:           feed,
		}
		if update.Timestamp != nil {
			t.ObservedAt = int64(*update.Timestamp)
		}

		for _, stu := range update.GetStopTimeUpdate() {
			s := models.StopTimeUpdate{
				StopID:               stu.GetStopId(),
				StopSequence:         copyUint32(stu.StopSequence),
				ScheduleRelationship: stopRelationship(stu.ScheduleRelationship),
			}
			if arrival := stu.GetArrival(); arrival != nil && arrival.Time != nil {
				s.PredictedArrival = copyInt64(arrival.Time)
			}
			if departure := stu.GetDeparture(); departure != nil && departure.Time != nil {
				s.PredictedDeparture = copyInt64(departure.Time)
			}
			t.StopTimeUpdates = append(t.StopTimeUpdates, s)
		}
		entities = append(entities, models.TripEntity(t))
	}
	return entities
}

// SelectTranslation picks alert text: the first English translation when one
// exists, the first available translation otherwise, and "" for an empty list.
func SelectTranslation(translations []decode.Translation) string {
	for _, tr := range translations {
		if tr.Language == "en" {
			return tr.Text
		}
	}
	if len(translations) > 0 {
		return translations[0].Text
	}
	return ""
}

// Alerts maps decoded JSON alerts.
func Alerts(feed string, raws []decode.RawAlert) []models.Entity {
	entities := make([]models.Entity, 0, len(raws))
	for _, raw := range raws {
		a := &models.Alert{
			AlertID:         raw.ID,
			Effect:          strings.ToLower(raw.Effect),
			Cause:           strings.ToLower(raw.Cause),
			HeaderText:      SelectTranslation(raw.HeaderText.Translations),
			DescriptionText: SelectTranslation(raw.DescriptionText.Translations),
			SourceFeed:      feed,
		}
		for _, period := range raw.ActivePeriod {
			a.ActivePeriods = append(a.ActivePeriods, models.ActivePeriod{
				Start: period.Start,
				End:   copyInt64(period.End),
			})
		}
		for _, informed := range raw.InformedEntity {
			switch {
			case informed.RouteID != "":
				a.InformedEntities = append(a.InformedEntities,
					models.InformedEntity{Type: models.InformedEntityRoute, ID: informed.RouteID})
			case informed.StopID != "":
				a.InformedEntities = append(a.InformedEntities,
					models.InformedEntity{Type: models.InformedEntityStation, ID: informed.StopID})
			case informed.AgencyID != "":
				a.InformedEntities = append(a.InformedEntities,
					models.InformedEntity{Type: models.InformedEntityAgency, ID: informed.AgencyID})
			}
		}
		entities = append(entities, models.AlertEntity(a))
	}
	return entities
}

// Equipment maps attribute bags from the equipment registry feed. Records
// without an equipment id cannot be keyed and are skipped.
func Equipment(bags []decode.AttributeBag) []models.Equipment {
	equipment := make([]models.Equipment, 0, len(bags))
	for _, bag := range bags {
		id := bag.First("equipment_id", "equipmentno", "equipment")
		if id == "" {
			continue
		}
		equipment = append(equipment, models.Equipment{
			EquipmentID:   id,
			StationID:     bag.First("station_id", "station"),
			EquipmentType: bag.First("equipment_type", "equipmenttype"),
			Location:      bag.First("location"),
			Serving:       bag.First("serving"),
		})
	}
	return equipment
}

// Outages maps attribute bags from an outage feed. The joined Equipment
// field stays nil here; the aggregator resolves it against the registry.
// Both the documented and the observed upstream field names are accepted,
// since the outage schema is provisional.
func Outages(feed string, bags []decode.AttributeBag, upcoming bool) []*models.AccessibilityOutage {
	outages := make([]*models.AccessibilityOutage, 0, len(bags))
	for _, bag := range bags {
		outages = append(outages, &models.AccessibilityOutage{
			EquipmentID:     bag.First("equipment_id", "equipmentno", "equipment"),
			OutageID:        bag.First("outage_id", "outageid"),
			Reason:          bag.First("reason", "outagereason"),
			OutageStart:     bag.First("outage_date", "outagedate", "outage_start"),
			EstimatedReturn: bag.First("estimated_return_date", "estimatedreturntoservice", "estimated_return"),
			IsUpcoming:      upcoming,
			SourceFeed:      feed,
		})
	}
	return outages
}

func vehicleStatus(status *gtfsrt.VehiclePosition_VehicleStopStatus) models.VehicleStatus {
	if status == nil {
		return models.VehicleStatusUnknown
	}
	switch *status {
	case gtfsrt.VehiclePosition_INCOMING_AT:
		return models.VehicleIncomingAt
	case gtfsrt.VehiclePosition_STOPPED_AT:
		return models.VehicleStoppedAt
	case gtfsrt.VehiclePosition_IN_TRANSIT_TO:
		return models.VehicleInTransitTo
	default:
		return models.VehicleStatusUnknown
	}
}

func tripRelationship(sr *gtfsrt.TripDescriptor_ScheduleRelationship) models.ScheduleRelationship {
	if sr == nil {
		return models.RelationshipScheduled
	}
	switch *sr {
	case gtfsrt.TripDescriptor_SCHEDULED:
		return models.RelationshipScheduled
	case gtfsrt.TripDescriptor_ADDED:
		return models.RelationshipAdded
	case gtfsrt.TripDescriptor_CANCELED:
		return models.RelationshipCanceled
	default:
		return models.RelationshipNoData
	}
}

func stopRelationship(sr *gtfsrt.TripUpdate_StopTimeUpdate_ScheduleRelationship) models.ScheduleRelationship {
	if sr == nil {
		return models.RelationshipScheduled
	}
	switch *sr {
	case gtfsrt.TripUpdate_StopTimeUpdate_SCHEDULED:
		return models.RelationshipScheduled
	case gtfsrt.TripUpdate_StopTimeUpdate_SKIPPED:
		return models.RelationshipSkipped
	case gtfsrt.TripUpdate_StopTimeUpdate_NO_DATA:
		return models.RelationshipNoData
	default:
		return models.RelationshipNoData
	}
}

func copyUint32(v *uint32) *uint32 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
