package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEquipmentXML(t *testing.T) {
	raw := []byte(`<?xml version="1.0" encoding="UTF-8"?>
	<NYCEquipments>
		<equipment>
			<station>Times Sq-42 St</station>
			<borough>MN</borough>
			<equipmentno>EL289</equipmentno>
			<equipmenttype>EL</equipmenttype>
			<serving>Mezzanine to platform</serving>
			<ADA>Y</ADA>
			<outagedate>09/01/2026 06:14:00 AM</outagedate>
			<estimatedreturntoservice>09/03/2026 12:00:00 PM</estimatedreturntoservice>
		</equipment>
		<equipment>
			<station>Court Sq</station>
			<equipmentno>ES101</equipmentno>
		</equipment>
	</NYCEquipments>`)

	bags, err := EquipmentXML("nyct-ene", raw)
	require.NoError(t, err)
	require.Len(t, bags, 2)

	assert.Equal(t, "EL289", bags[0].Get("equipmentno"))
	assert.Equal(t, "Times Sq-42 St", bags[0].Get("station"))
	assert.Equal(t, "EL", bags[0].Get("equipmenttype"))
	// Tag lookup is case-insensitive.
	assert.Equal(t, "Y", bags[0].Get("ADA"))
	assert.Equal(t, "09/01/2026 06:14:00 AM", bags[0].Get("outagedate"))

	assert.Equal(t, "ES101", bags[1].Get("equipmentno"))
	assert.Equal(t, "", bags[1].Get("equipmenttype"))
}

func TestEquipmentXMLFlattensNestedText(t *testing.T) {
	raw := []byte(`<root><equipment><serving>Street <b>to</b> mezzanine</serving></equipment></root>`)

	bags, err := EquipmentXML("nyct-ene", raw)
	require.NoError(t, err)
	require.Len(t, bags, 1)
	assert.Equal(t, "Street to mezzanine", bags[0].Get("serving"))
}

func TestEquipmentXMLMalformed(t *testing.T) {
	_, err := EquipmentXML("nyct-ene", []byte(`<equipment><station>unclosed`))
	require.Error(t, err)

	var decodeErr *Error
	assert.ErrorAs(t, err, &decodeErr)
}

func TestEquipmentJSON(t *testing.T) {
	raw := []byte(`[
		{"equipment_id": "EL289", "station_id": "127", "equipment_type": "EL", "ada": true, "floor": 2},
		{"equipment_id": "ES101", "station_id": null}
	]`)

	bags, err := EquipmentJSON("nyct-ene-equipments", raw)
	require.NoError(t, err)
	require.Len(t, bags, 2)

	assert.Equal(t, "EL289", bags[0].Get("equipment_id"))
	assert.Equal(t, "127", bags[0].Get("station_id"))
	assert.Equal(t, "true", bags[0].Get("ada"))
	// Integer-valued JSON numbers must not grow a ".0".
	assert.Equal(t, "2", bags[0].Get("floor"))
	assert.Equal(t, "", bags[1].Get("station_id"))
}

func TestAttributeBagFirst(t *testing.T) {
	bag := AttributeBag{"equipmentno": "EL289", "station": "Times Sq"}

	assert.Equal(t, "EL289", bag.First("equipment_id", "equipmentno"))
	assert.Equal(t, "", bag.First("outage_id", "outageid"))
}
