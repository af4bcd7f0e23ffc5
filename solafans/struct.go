package solafans

import (
	"github.com/shopspring/decimal"
)

type Err string

func (e Err) Error() string {
	return string(e)
}

const (
	ErrUnsupportedType = Err("unsupported type")
	ErrLength          = Err("invalid frame length")
	ErrChecksum        = Err("frame checksum mismatch")

	// FrameSize is the fixed length of a status response, checksum included
	FrameSize = 93
	// CommandSize is the fixed length of a request
	CommandSize = 8
	// payloadSize is the number of interpreted bytes at the start of a frame
	payloadSize = 52

	// FunctionStatus queries the full controller status block
	FunctionStatus uint8 = 0xB1
	// controlRead is the control code sent in byte 2 of every query
	controlRead uint8 = 0x01

	// Unknown is reported for enumerated fields whose raw index has no label
	Unknown = "unknown"
)

var (
	batteryTypes     = []string{"lead_acid_maintenance_free", "lead_acid_colloid", "lead_acid_liquid", "lithium"}
	loadControlModes = []string{"off", "automatic", "time_control", "light_control", "remote_control"}
	// Baud rate byte is 1-based
	baudRates = []int{1200, 2400, 4800, 9600}
)

// OperatingStatus is byte 3 of the frame.
type OperatingStatus struct {
	BatteryAutoIdentification      bool
	BatteryOverDischargeProtection bool
	Fan                            bool
	Temperature                    bool
	DCOutput                       bool
	InternalTempProbe1             bool
	InternalTempProbe2             bool
	ExternalTempProbe              bool
}

// ChargingStatus is byte 4 of the frame.
type ChargingStatus struct {
	Charging                       bool
	EqualizingCharge               bool
	Tracking                       bool
	FloatingCharge                 bool
	ChargingCurrentLimit           bool
	ChargingDerating               bool
	RemoteControlProhibitsCharging bool
	PVOvervoltage                  bool
}

// ControlStatus is byte 5 of the frame. Bits 3, 6 and 7 are unassigned.
type ControlStatus struct {
	Raw                  uint8
	Relay                bool
	Load                 bool
	Fan                  bool
	OverchargeProtection bool
	Overvoltage          bool
}

// Enum is a raw index together with its label, Unknown when out of range.
type Enum struct {
	Raw   uint8
	Label string
}

// Reading is one decoded status frame.
type Reading struct {
	Address     uint8
	CommandType uint8
	ControlCode uint8

	Operating OperatingStatus
	Charging  ChargingStatus
	Control   ControlStatus

	BatteryType Enum
	// BatteryIDMethod is "auto" when the battery voltage is detected, "manual" otherwise
	BatteryIDMethod    string
	NumberOfBatteries  uint8
	LoadControlMode    Enum
	MPPTAddressConfirm uint8

	// BaudRate is 0 when the index is out of range
	BaudRate    int
	BaudRateRaw uint8

	// Voltages in V, currents in A, temperatures in °C
	RatedVoltageLevel               decimal.Decimal
	UpperChargeVoltage              decimal.Decimal
	FloatVoltageLimit               decimal.Decimal
	LowVoltageDischargeLimit        decimal.Decimal
	HardwareMaxChargingCurrentLimit decimal.Decimal
	DefinedChargeLimit              decimal.Decimal
	RunningChargingCurrentLimit     decimal.Decimal
	PVVoltageIn                     decimal.Decimal
	BatteryVoltage                  decimal.Decimal
	ChargingCurrent                 decimal.Decimal
	InternalTemperature             decimal.Decimal
	ExternalTemperature             decimal.Decimal

	// EnergyToday is bytes 44-47 as a 4 byte counter in kWh
	EnergyToday decimal.Decimal
	// GenerationDays is bytes 44-46 as a 3 byte counter. Some firmware
	// revisions report the number of days of generation there instead.
	GenerationDays uint32
	// TotalEnergyGenerated is the lifetime cumulative energy in kWh
	TotalEnergyGenerated decimal.Decimal
}
