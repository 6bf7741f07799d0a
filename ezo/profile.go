package ezo

import (
	"fmt"
	"strings"
)

// ValueMode selects how a measurement payload is published.
type ValueMode uint8

const (
	// SingleValue publishes the first comma separated field to the first sink.
	SingleValue ValueMode = iota
	// MultiValue publishes fields positionally, one per sink. Missing fields
	// are logged and skipped.
	MultiValue
	// FixedFields publishes fields positionally. When the circuit returns
	// fewer fields than the profile defines, nothing is published and the
	// output fields are enabled again with the profile's select commands.
	FixedFields
)

// String returns the mode name.
func (m ValueMode) String() string {
	switch m {
	case SingleValue:
		return "single"
	case MultiValue:
		return "multi"
	case FixedFields:
		return "fixed"
	default:
		return "unknown"
	}
}

// Field is one output field of a multi-value circuit.
type Field struct {
	// Name labels the field in sinks, e.g. "tds".
	Name string
	// Select is the command enabling the field in the circuit output, e.g. "O,TDS,1".
	Select string
}

// Profile describes how the readings of a circuit type are interpreted.
type Profile struct {
	// Type is the circuit type, e.g. "ph" or "ec".
	Type string
	// Mode selects single, multi or fixed field publishing.
	Mode ValueMode
	// Fields lists the output fields in the order the circuit reports them.
	Fields []Field
	// DefaultAddress is the factory I2C address of the circuit type.
	DefaultAddress uint8
}

// Factory I2C addresses of EZO circuits.
var defaultAddresses = map[string]uint8{
	"do":  97,
	"orp": 98,
	"ph":  99,
	"ec":  100,
	"rtd": 102,
	"flo": 104,
	"hum": 111,
}

// SingleProfile returns the profile of a single-value circuit such as pH,
// ORP or RTD.
func SingleProfile(kind string) Profile {
	kind = strings.ToLower(kind)

	return Profile{
		Type:           kind,
		Mode:           SingleValue,
		Fields:         []Field{{Name: "value"}},
		DefaultAddress: defaultAddresses[kind],
	}
}

// MultiProfile returns a generic multi-value profile with the given field names.
func MultiProfile(names ...string) Profile {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, Field{Name: name})
	}

	return Profile{Type: "multi", Mode: MultiValue, Fields: fields}
}

// DOProfile returns the dissolved oxygen profile: mg/L and percent saturation.
func DOProfile() Profile {
	return Profile{
		Type: "do",
		Mode: FixedFields,
		Fields: []Field{
			{Name: "mg", Select: "O,mg,1"},
			{Name: "percent", Select: "O,%,1"},
		},
		DefaultAddress: defaultAddresses["do"],
	}
}

// ECProfile returns the conductivity profile: EC, TDS, salinity and specific gravity.
func ECProfile() Profile {
	return Profile{
		Type: "ec",
		Mode: FixedFields,
		Fields: []Field{
			{Name: "ec", Select: "O,EC,1"},
			{Name: "tds", Select: "O,TDS,1"},
			{Name: "salinity", Select: "O,S,1"},
			{Name: "sg", Select: "O,SG,1"},
		},
		DefaultAddress: defaultAddresses["ec"],
	}
}

// FLOProfile returns the flow meter profile: total volume and flow rate.
func FLOProfile() Profile {
	return Profile{
		Type: "flo",
		Mode: FixedFields,
		Fields: []Field{
			{Name: "total_volume", Select: "O,TV,1"},
			{Name: "flow_rate", Select: "O,FR,1"},
		},
		DefaultAddress: defaultAddresses["flo"],
	}
}

// HUMProfile returns the humidity profile: relative humidity, air
// temperature and dew point, published positionally.
func HUMProfile() Profile {
	p := MultiProfile("humidity", "temperature", "dew_point")
	p.Type = "hum"
	p.DefaultAddress = defaultAddresses["hum"]

	return p
}

// ProfileByName returns the profile of a circuit type.
//
// Known names are ph, orp, rtd, do, ec, flo and hum. Field names are only
// used for "multi", which builds a generic multi-value profile.
func ProfileByName(name string, fields ...string) (Profile, error) {
	switch strings.ToLower(name) {
	case "ph", "orp", "rtd", "single":
		return SingleProfile(name), nil
	case "do":
		return DOProfile(), nil
	case "ec":
		return ECProfile(), nil
	case "flo":
		return FLOProfile(), nil
	case "hum":
		return HUMProfile(), nil
	case "multi":
		if len(fields) == 0 {
			return Profile{}, fmt.Errorf("%w: multi profile needs field names", ErrUnknownProfile)
		}

		return MultiProfile(fields...), nil
	default:
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

// FieldNames returns the names of the profile fields in order.
func (p Profile) FieldNames() []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}

	return names
}

// expectedFields returns how many fields a complete reading carries.
// Generic multi-value circuits expect one field per configured sink.
func (p Profile) expectedFields(sinks int) int {
	switch p.Mode {
	case SingleValue:
		return 1
	case FixedFields:
		return len(p.Fields)
	default:
		return sinks
	}
}
