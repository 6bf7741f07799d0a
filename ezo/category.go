package ezo

// Category identifies the kind of a queued command and selects how its
// response is interpreted.
type Category uint8

const (
	// CategoryRead requests a measurement ("R").
	CategoryRead Category = iota
	// CategoryLED sets or queries the indicator LED ("L,1", "L,?").
	CategoryLED
	// CategoryDeviceInfo queries the device type and firmware ("i").
	CategoryDeviceInfo
	// CategorySlope queries the probe slope ("Slope,?").
	CategorySlope
	// CategoryCalibration performs or queries calibration ("Cal,...").
	CategoryCalibration
	// CategorySleep puts the circuit into low power mode ("Sleep"). No response.
	CategorySleep
	// CategoryAddress changes the I2C address ("I2C,n"). No response.
	CategoryAddress
	// CategoryTemperature sets or queries temperature compensation ("T,...").
	CategoryTemperature
	// CategoryCustom sends a caller supplied command verbatim.
	CategoryCustom
	// CategoryInternal is used by the driver itself (bootstrap, output field selection).
	CategoryInternal

	categoryCount
)

var categoryNames = [categoryCount]string{
	"read", "led", "device_information", "slope", "calibration",
	"sleep", "address", "temperature", "custom", "internal",
}

// String returns the name of the category.
func (c Category) String() string {
	if c >= categoryCount {
		return "unknown"
	}

	return categoryNames[c]
}

// IsValid reports whether c is one of the defined categories.
func (c Category) IsValid() bool { return c < categoryCount }

// ExpectsResponse reports whether the circuit answers commands of this
// category. Sleep and address changes are fire-and-forget.
func (c Category) ExpectsResponse() bool {
	return c != CategorySleep && c != CategoryAddress
}

// hasStringHandler reports whether a consumer may register a string handler
// for the category.
func (c Category) hasStringHandler() bool {
	switch c {
	case CategoryDeviceInfo, CategorySlope, CategoryCalibration, CategoryTemperature, CategoryCustom:
		return true
	default:
		return false
	}
}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}

	return 0, ErrUnknownCategory
}
