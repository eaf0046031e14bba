package tz

// zipRange maps an inclusive zip-code interval to an IANA zone. The table is
// coarse: a state's dominant zone wins where a state straddles a boundary.
// First matching interval wins; ranges are kept in ascending order.
type zipRange struct {
	lo, hi int
	zone   string
}

var zipZones = []zipRange{
	{501, 14999, "America/New_York"},    // NY
	{15000, 19699, "America/New_York"},  // PA, DE
	{19700, 21999, "America/New_York"},  // DC, MD
	{22000, 24699, "America/New_York"},  // VA
	{24700, 26899, "America/New_York"},  // WV
	{27000, 28999, "America/New_York"},  // NC
	{29000, 29999, "America/New_York"},  // SC
	{30000, 31999, "America/New_York"},  // GA
	{32000, 34999, "America/New_York"},  // FL
	{35000, 36999, "America/Chicago"},   // AL
	{37000, 38599, "America/Chicago"},   // TN
	{38600, 39799, "America/Chicago"},   // MS
	{39800, 39999, "America/New_York"},  // GA (Atlanta overflow)
	{40000, 42799, "America/New_York"},  // KY
	{43000, 45899, "America/New_York"},  // OH
	{46000, 47999, "America/New_York"},  // IN
	{48000, 49999, "America/New_York"},  // MI
	{50000, 52899, "America/Chicago"},   // IA
	{53000, 54999, "America/Chicago"},   // WI
	{55000, 56799, "America/Chicago"},   // MN
	{57000, 57799, "America/Chicago"},   // SD
	{58000, 58899, "America/Chicago"},   // ND
	{59000, 59999, "America/Denver"},    // MT
	{60000, 62999, "America/Chicago"},   // IL
	{63000, 65899, "America/Chicago"},   // MO
	{66000, 67999, "America/Chicago"},   // KS
	{68000, 69399, "America/Chicago"},   // NE
	{70000, 71499, "America/Chicago"},   // LA
	{71600, 72999, "America/Chicago"},   // AR
	{73000, 74999, "America/Chicago"},   // OK
	{75000, 79999, "America/Chicago"},   // TX
	{80000, 81699, "America/Denver"},    // CO
	{82000, 83199, "America/Denver"},    // WY
	{83200, 83899, "America/Boise"},     // ID
	{84000, 84799, "America/Denver"},    // UT
	{85000, 86599, "America/Phoenix"},   // AZ
	{87000, 88499, "America/Denver"},    // NM
	{88900, 89899, "America/Los_Angeles"}, // NV
	{90000, 96199, "America/Los_Angeles"}, // CA
	{96700, 96899, "Pacific/Honolulu"},  // HI
	{97000, 97999, "America/Los_Angeles"}, // OR
	{98000, 99499, "America/Los_Angeles"}, // WA
	{99500, 99999, "America/Anchorage"}, // AK
}
