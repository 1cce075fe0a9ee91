// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package n2k

// Network management PGNs
const (
	PGNISOAcknowledgement = 59392
	PGNISORequest         = 59904
	PGNAddressClaim       = 60928
	PGNCommandedAddress   = 65240
	PGNGroupFunction      = 126208
	PGNTransmitPGNList    = 126464
	PGNHeartbeat          = 126993
	PGNProductInfo        = 126996
	PGNConfigInfo         = 126998
)

// Common data PGNs (names only; payloads are not decoded)
const (
	PGNSystemTime          = 126992
	PGNVesselHeading       = 127250
	PGNRateOfTurn          = 127251
	PGNAttitude            = 127257
	PGNEngineRapid         = 127488
	PGNEngineDynamic       = 127489
	PGNFluidLevel          = 127505
	PGNBatteryStatus       = 127508
	PGNSpeed               = 128259
	PGNWaterDepth          = 128267
	PGNPositionRapid       = 129025
	PGNCOGSOGRapid         = 129026
	PGNGNSSPosition        = 129029
	PGNWindData            = 130306
	PGNEnvironmental       = 130311
	PGNTemperature         = 130312
	PGNActualPressure      = 130314
	PGNTemperatureExtRange = 130316
)

var pgnNames = map[uint32]string{
	PGNISOAcknowledgement:  "ISO_ACKNOWLEDGEMENT",
	PGNISORequest:          "ISO_REQUEST",
	PGNAddressClaim:        "ADDRESS_CLAIM",
	PGNCommandedAddress:    "COMMANDED_ADDRESS",
	PGNGroupFunction:       "GROUP_FUNCTION",
	PGNTransmitPGNList:     "PGN_LIST",
	PGNHeartbeat:           "HEARTBEAT",
	PGNProductInfo:         "PRODUCT_INFO",
	PGNConfigInfo:          "CONFIG_INFO",
	PGNSystemTime:          "SYSTEM_TIME",
	PGNVesselHeading:       "VESSEL_HEADING",
	PGNRateOfTurn:          "RATE_OF_TURN",
	PGNAttitude:            "ATTITUDE",
	PGNEngineRapid:         "ENGINE_RAPID",
	PGNEngineDynamic:       "ENGINE_DYNAMIC",
	PGNFluidLevel:          "FLUID_LEVEL",
	PGNBatteryStatus:       "BATTERY_STATUS",
	PGNSpeed:               "SPEED",
	PGNWaterDepth:          "WATER_DEPTH",
	PGNPositionRapid:       "POSITION_RAPID",
	PGNCOGSOGRapid:         "COG_SOG_RAPID",
	PGNGNSSPosition:        "GNSS_POSITION",
	PGNWindData:            "WIND_DATA",
	PGNEnvironmental:       "ENVIRONMENTAL",
	PGNTemperature:         "TEMPERATURE",
	PGNActualPressure:      "ACTUAL_PRESSURE",
	PGNTemperatureExtRange: "TEMPERATURE_EXT_RANGE",
}

// PGNName returns the human-readable name for a PGN, or "UNKNOWN"
func PGNName(pgn uint32) string {
	if name, ok := pgnNames[pgn]; ok {
		return name
	}
	return "UNKNOWN"
}
