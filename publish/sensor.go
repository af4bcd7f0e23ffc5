package publish

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackandwhitetux/solafans-rs485/aggregate"
	"github.com/blackandwhitetux/solafans-rs485/solafans"
	"github.com/shopspring/decimal"
)

// Attribute names understood by Home Assistant
const (
	AttrUnit         = "unit_of_measurement"
	AttrFriendlyName = "friendly_name"
	AttrStateClass   = "state_class"
	AttrDeviceClass  = "device_class"
)

// Sensor is one named value pushed to a sink. Value is a json.Number,
// bool or string.
type Sensor struct {
	Device     string
	Key        string
	Value      interface{}
	Attributes map[string]string
}

// EntityID is the Home Assistant entity the sensor is stored under.
func (s Sensor) EntityID() string {
	return "sensor." + s.Device + "_" + s.Key
}

// String renders the value the way it is sent as plain text.
func (s Sensor) String() string {
	return fmt.Sprint(s.Value)
}

// Number keeps every digit of the decimal's scale, so 12.00 V is sent as
// 12.00 and not 12.
func Number(d decimal.Decimal) json.Number {
	if exp := d.Exponent(); exp < 0 {
		return json.Number(d.StringFixed(-exp))
	}
	return json.Number(d.String())
}

func friendlyName(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

type builder struct {
	device  string
	sensors []Sensor
}

func (b *builder) add(key string, v interface{}, attrs ...string) {
	a := map[string]string{
		AttrFriendlyName: friendlyName(key),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		a[attrs[i]] = attrs[i+1]
	}
	b.sensors = append(b.sensors, Sensor{
		Device:     b.device,
		Key:        key,
		Value:      v,
		Attributes: a,
	})
}

func (b *builder) count(key string, v uint8) {
	b.add(key, json.Number(fmt.Sprintf("%d", v)))
}

func (b *builder) measurement(key string, v decimal.Decimal, unit, class string) {
	attrs := []string{AttrUnit, unit, AttrStateClass, "measurement"}
	if class != "" {
		attrs = append(attrs, AttrDeviceClass, class)
	}
	b.add(key, Number(v), attrs...)
}

func (b *builder) energy(key string, v decimal.Decimal) {
	b.add(key, Number(v),
		AttrUnit, "kWh",
		AttrStateClass, "total_increasing",
		AttrDeviceClass, "energy",
	)
}

// ReadingSensors maps every decoded field of r to a sensor of device.
func ReadingSensors(device string, r *solafans.Reading) []Sensor {
	b := &builder{device: device}

	b.count("mppt_address", r.Address)
	b.count("command_type", r.CommandType)
	b.count("control_code", r.ControlCode)

	op := r.Operating
	b.add("operating_status_battery_auto_identification", op.BatteryAutoIdentification)
	b.add("operating_status_battery_over_discharge_protection", op.BatteryOverDischargeProtection)
	b.add("operating_status_fan", op.Fan)
	b.add("operating_status_temperature", op.Temperature)
	b.add("operating_status_dc_output", op.DCOutput)
	b.add("operating_status_int_temp_probe_1", op.InternalTempProbe1)
	b.add("operating_status_int_temp_probe_2", op.InternalTempProbe2)
	b.add("operating_status_ext_temp_probe", op.ExternalTempProbe)

	chg := r.Charging
	b.add("charging_status_charging", chg.Charging)
	b.add("charging_status_equalizing_charge", chg.EqualizingCharge)
	b.add("charging_status_tracking", chg.Tracking)
	b.add("charging_status_floating_charge", chg.FloatingCharge)
	b.add("charging_status_charging_current_limit", chg.ChargingCurrentLimit)
	b.add("charging_status_charging_derating", chg.ChargingDerating)
	b.add("charging_status_remote_control_prohibits_charging", chg.RemoteControlProhibitsCharging)
	b.add("charging_status_pv_overvoltage", chg.PVOvervoltage)

	ctl := r.Control
	b.count("control_status", ctl.Raw)
	b.add("control_status_relay", ctl.Relay)
	b.add("control_status_load", ctl.Load)
	b.add("control_status_fan", ctl.Fan)
	b.add("control_status_overcharge_protection", ctl.OverchargeProtection)
	b.add("control_status_overvoltage", ctl.Overvoltage)

	b.add("battery_type", r.BatteryType.Label)
	b.add("battery_id_method", r.BatteryIDMethod)
	b.count("number_of_batteries", r.NumberOfBatteries)
	b.add("load_control_mode", r.LoadControlMode.Label)
	b.count("mppt_address_confirm", r.MPPTAddressConfirm)
	b.add("baud_rate", json.Number(fmt.Sprintf("%d", r.BaudRate)))

	b.measurement("rated_voltage_level", r.RatedVoltageLevel, "V", "voltage")
	b.measurement("upper_charge_voltage", r.UpperChargeVoltage, "V", "voltage")
	b.measurement("float_voltage_limit", r.FloatVoltageLimit, "V", "voltage")
	b.measurement("low_voltage_discharge_limit", r.LowVoltageDischargeLimit, "V", "voltage")
	b.measurement("hardware_max_charging_current_limit", r.HardwareMaxChargingCurrentLimit, "A", "current")
	b.measurement("defined_charge_limit", r.DefinedChargeLimit, "A", "current")
	b.measurement("running_charging_current_limit", r.RunningChargingCurrentLimit, "A", "current")
	b.measurement("pv_voltage_in", r.PVVoltageIn, "V", "voltage")
	b.measurement("battery_voltage", r.BatteryVoltage, "V", "voltage")
	b.measurement("charging_current", r.ChargingCurrent, "A", "current")
	b.measurement("power", aggregate.CombinedPower(r.ChargingCurrent, decimal.Zero, r.BatteryVoltage), "W", "power")
	b.measurement("int_temp", r.InternalTemperature, "°C", "temperature")
	b.measurement("ext_temp", r.ExternalTemperature, "°C", "temperature")

	b.add("energy_today", Number(r.EnergyToday),
		AttrUnit, "kWh",
		AttrStateClass, "total",
		AttrDeviceClass, "energy",
	)
	b.add("days_of_power_generation", json.Number(fmt.Sprintf("%d", r.GenerationDays)), AttrUnit, "d")
	b.energy("total_kwh_generated", r.TotalEnergyGenerated)

	return b.sensors
}

// CombinedSensors maps the ready values of c to sensors of device.
func CombinedSensors(device string, c aggregate.Combined) []Sensor {
	b := &builder{device: device}
	if c.PowerOK {
		b.measurement("power", c.Power, "W", "power")
	}
	if c.EnergyOK {
		b.energy("energy", c.Energy)
	}
	return b.sensors
}

// Keys lists the sensor keys in order.
func Keys(sensors []Sensor) []string {
	keys := make([]string, 0, len(sensors))
	for _, s := range sensors {
		keys = append(keys, s.Key)
	}
	return keys
}

// ReadingKeys lists every key ReadingSensors produces.
func ReadingKeys() []string {
	return Keys(ReadingSensors("", &solafans.Reading{}))
}

// CombinedKeys lists every key CombinedSensors can produce.
func CombinedKeys() []string {
	return Keys(CombinedSensors("", aggregate.Combined{PowerOK: true, EnergyOK: true}))
}
