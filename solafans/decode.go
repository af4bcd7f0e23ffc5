package solafans

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Decode unpacks a validated frame. The result depends only on the frame
// bytes. Checksum-valid but nonsensical payloads are decoded as-is, with
// out of range enum indices reported as Unknown.
func Decode(f Frame) (*Reading, error) {
	if len(f) != FrameSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(f), FrameSize)
	}
	buf := NewBuffer(f)
	m := &Reading{}

	var op, chg, ctl, batType, idMethod, loadMode, baud uint8
	err := buf.ReadRaw(
		&m.Address,
		&m.CommandType,
		&m.ControlCode,
		&op,
		&chg,
		&ctl,
	)
	if err != nil {
		return nil, err
	}
	m.Operating = decodeOperating(op)
	m.Charging = decodeCharging(chg)
	m.Control = decodeControl(ctl)

	// 6-7 reserved
	if err := buf.Skip(2); err != nil {
		return nil, err
	}

	err = buf.ReadRaw(
		&batType,
		&idMethod,
		&m.NumberOfBatteries,
		&loadMode,
		&m.MPPTAddressConfirm,
		&baud,
	)
	if err != nil {
		return nil, err
	}
	m.BatteryType = lookup(batteryTypes, int(batType), batType)
	m.BatteryIDMethod = "manual"
	if idMethod == 0 {
		m.BatteryIDMethod = "auto"
	}
	m.LoadControlMode = lookup(loadControlModes, int(loadMode), loadMode)
	m.BaudRateRaw = baud
	if baud >= 1 && int(baud) <= len(baudRates) {
		m.BaudRate = baudRates[baud-1]
	}

	// 14-15 reserved
	if err := buf.Skip(2); err != nil {
		return nil, err
	}

	// Bytes 16-37, 16 bit fields with their decimal exponent
	scaled := []struct {
		dst *decimal.Decimal
		exp int32
	}{
		{&m.RatedVoltageLevel, -2},
		{&m.UpperChargeVoltage, -2},
		{&m.FloatVoltageLimit, -2},
		{&m.LowVoltageDischargeLimit, -2},
		{&m.HardwareMaxChargingCurrentLimit, -2},
		{&m.DefinedChargeLimit, -2},
		{&m.RunningChargingCurrentLimit, -2},
		{&m.PVVoltageIn, -1},
		{&m.BatteryVoltage, -2},
		{&m.ChargingCurrent, -2},
		{&m.InternalTemperature, -1},
	}
	for _, s := range scaled {
		var raw uint16
		if err := buf.ReadRaw(&raw); err != nil {
			return nil, err
		}
		*s.dst = decimal.New(int64(raw), s.exp)
	}

	// 38-39 reserved
	if err := buf.Skip(2); err != nil {
		return nil, err
	}
	var extTemp uint16
	if err := buf.ReadRaw(&extTemp); err != nil {
		return nil, err
	}
	m.ExternalTemperature = decimal.New(int64(extTemp), -1)

	// 42-43 reserved
	if err := buf.Skip(2); err != nil {
		return nil, err
	}

	// Bytes 44-47 are read as a 4 byte energy counter and 48-51 hold the
	// total. Older firmware reports a 3 byte day counter in 44-46.
	day := make([]byte, 4)
	var total uint32
	if err := buf.ReadRaw(day, &total); err != nil {
		return nil, err
	}
	m.EnergyToday = decimal.New(int64(order.Uint32(day)), -3)
	m.GenerationDays = uint32(day[0])<<16 | uint32(day[1])<<8 | uint32(day[2])
	m.TotalEnergyGenerated = decimal.New(int64(total), -3)

	// Remaining bytes up to the checksum are not interpreted
	if rest := buf.Len(); rest != FrameSize-payloadSize {
		return nil, fmt.Errorf("%w: %d bytes left after payload", ErrLength, rest)
	}
	return m, nil
}

func lookup(labels []string, idx int, raw uint8) Enum {
	if idx < 0 || idx >= len(labels) {
		return Enum{Raw: raw, Label: Unknown}
	}
	return Enum{Raw: raw, Label: labels[idx]}
}

func bit(b uint8, n uint) bool {
	return b&(1<<n) != 0
}

func decodeOperating(b uint8) OperatingStatus {
	return OperatingStatus{
		BatteryAutoIdentification:      bit(b, 0),
		BatteryOverDischargeProtection: bit(b, 1),
		Fan:                            bit(b, 2),
		Temperature:                    bit(b, 3),
		DCOutput:                       bit(b, 4),
		InternalTempProbe1:             bit(b, 5),
		InternalTempProbe2:             bit(b, 6),
		ExternalTempProbe:              bit(b, 7),
	}
}

func decodeCharging(b uint8) ChargingStatus {
	return ChargingStatus{
		Charging:                       bit(b, 0),
		EqualizingCharge:               bit(b, 1),
		Tracking:                       bit(b, 2),
		FloatingCharge:                 bit(b, 3),
		ChargingCurrentLimit:           bit(b, 4),
		ChargingDerating:               bit(b, 5),
		RemoteControlProhibitsCharging: bit(b, 6),
		PVOvervoltage:                  bit(b, 7),
	}
}

func decodeControl(b uint8) ControlStatus {
	return ControlStatus{
		Raw:                  b,
		Relay:                bit(b, 0),
		Load:                 bit(b, 1),
		Fan:                  bit(b, 2),
		OverchargeProtection: bit(b, 4),
		Overvoltage:          bit(b, 5),
	}
}
