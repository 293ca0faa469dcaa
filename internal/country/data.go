package country

// DefaultGraph returns the compiled-in country-adjacency dataset used when
// no external graph is supplied. The numbers are illustrative infrastructure
// weights (submarine cable landings, internet exchange points) rather than
// a claim of precise real-world counts; what matters for the scoring
// strategies in package speedtest is that hub countries (US, GB, DE)
// score higher on HubsFirst and that short links score higher on
// DistanceFirst (at equal distance a submarine link scores lower than a
// terrestrial one).
func DefaultGraph() *Graph {
	return NewGraph(seedCountries)
}

var seedCountries = []Country{
	{
		Code: "US", CableConnectionsNumber: 78, InternetExchangesNumber: 25,
		Links: []Link{
			{Code: "CA", Distance: 1500, Type: Terrestrial},
			{Code: "GB", Distance: 5600, Type: Submarine},
			{Code: "NL", Distance: 5900, Type: Submarine},
			{Code: "BR", Distance: 7800, Type: Submarine},
			{Code: "JP", Distance: 8800, Type: Submarine},
			{Code: "DE", Distance: 6200, Type: Submarine},
		},
	},
	{
		Code: "CA", CableConnectionsNumber: 21, InternetExchangesNumber: 8,
		Links: []Link{
			{Code: "US", Distance: 1500, Type: Terrestrial},
			{Code: "GB", Distance: 5200, Type: Submarine},
		},
	},
	{
		Code: "GB", CableConnectionsNumber: 57, InternetExchangesNumber: 19,
		Links: []Link{
			{Code: "FR", Distance: 350, Type: Submarine},
			{Code: "NL", Distance: 360, Type: Submarine},
			{Code: "US", Distance: 5600, Type: Submarine},
			{Code: "DE", Distance: 930, Type: Terrestrial},
		},
	},
	{
		Code: "FR", CableConnectionsNumber: 34, InternetExchangesNumber: 11,
		Links: []Link{
			{Code: "GB", Distance: 350, Type: Submarine},
			{Code: "DE", Distance: 880, Type: Terrestrial},
			{Code: "ES", Distance: 1050, Type: Terrestrial},
			{Code: "IT", Distance: 1100, Type: Terrestrial},
			{Code: "CH", Distance: 540, Type: Terrestrial},
		},
	},
	{
		Code: "DE", CableConnectionsNumber: 40, InternetExchangesNumber: 22,
		Links: []Link{
			{Code: "NL", Distance: 600, Type: Terrestrial},
			{Code: "FR", Distance: 880, Type: Terrestrial},
			{Code: "GB", Distance: 930, Type: Terrestrial},
			{Code: "PL", Distance: 520, Type: Terrestrial},
			{Code: "CH", Distance: 750, Type: Terrestrial},
			{Code: "SE", Distance: 810, Type: Terrestrial},
			{Code: "US", Distance: 6200, Type: Submarine},
		},
	},
	{
		Code: "NL", CableConnectionsNumber: 29, InternetExchangesNumber: 14,
		Links: []Link{
			{Code: "GB", Distance: 360, Type: Submarine},
			{Code: "DE", Distance: 600, Type: Terrestrial},
			{Code: "US", Distance: 5900, Type: Submarine},
			{Code: "SE", Distance: 1050, Type: Terrestrial},
		},
	},
	{
		Code: "SE", CableConnectionsNumber: 12, InternetExchangesNumber: 6,
		Links: []Link{
			{Code: "DE", Distance: 810, Type: Terrestrial},
			{Code: "NL", Distance: 1050, Type: Terrestrial},
			{Code: "PL", Distance: 980, Type: Terrestrial},
			{Code: "RU", Distance: 1250, Type: Terrestrial},
		},
	},
	{
		Code: "PL", CableConnectionsNumber: 8, InternetExchangesNumber: 4,
		Links: []Link{
			{Code: "DE", Distance: 520, Type: Terrestrial},
			{Code: "SE", Distance: 980, Type: Terrestrial},
			{Code: "RU", Distance: 1450, Type: Terrestrial},
		},
	},
	{
		Code: "RU", CableConnectionsNumber: 11, InternetExchangesNumber: 5,
		Links: []Link{
			{Code: "PL", Distance: 1450, Type: Terrestrial},
			{Code: "SE", Distance: 1250, Type: Terrestrial},
			{Code: "CN", Distance: 5800, Type: Terrestrial},
		},
	},
	{
		Code: "IT", CableConnectionsNumber: 17, InternetExchangesNumber: 7,
		Links: []Link{
			{Code: "FR", Distance: 1100, Type: Terrestrial},
			{Code: "CH", Distance: 700, Type: Terrestrial},
			{Code: "ES", Distance: 1450, Type: Terrestrial},
		},
	},
	{
		Code: "ES", CableConnectionsNumber: 19, InternetExchangesNumber: 6,
		Links: []Link{
			{Code: "FR", Distance: 1050, Type: Terrestrial},
			{Code: "IT", Distance: 1450, Type: Terrestrial},
			{Code: "BR", Distance: 8200, Type: Submarine},
		},
	},
	{
		Code: "CH", CableConnectionsNumber: 6, InternetExchangesNumber: 3,
		Links: []Link{
			{Code: "FR", Distance: 540, Type: Terrestrial},
			{Code: "DE", Distance: 750, Type: Terrestrial},
			{Code: "IT", Distance: 700, Type: Terrestrial},
		},
	},
	{
		Code: "JP", CableConnectionsNumber: 30, InternetExchangesNumber: 10,
		Links: []Link{
			{Code: "US", Distance: 8800, Type: Submarine},
			{Code: "KR", Distance: 1100, Type: Submarine},
			{Code: "SG", Distance: 5300, Type: Submarine},
			{Code: "AU", Distance: 6600, Type: Submarine},
		},
	},
	{
		Code: "KR", CableConnectionsNumber: 15, InternetExchangesNumber: 5,
		Links: []Link{
			{Code: "JP", Distance: 1100, Type: Submarine},
			{Code: "CN", Distance: 950, Type: Submarine},
			{Code: "SG", Distance: 4600, Type: Submarine},
		},
	},
	{
		Code: "CN", CableConnectionsNumber: 22, InternetExchangesNumber: 9,
		Links: []Link{
			{Code: "KR", Distance: 950, Type: Submarine},
			{Code: "SG", Distance: 3800, Type: Submarine},
			{Code: "RU", Distance: 5800, Type: Terrestrial},
			{Code: "IN", Distance: 3500, Type: Terrestrial},
		},
	},
	{
		Code: "SG", CableConnectionsNumber: 25, InternetExchangesNumber: 11,
		Links: []Link{
			{Code: "JP", Distance: 5300, Type: Submarine},
			{Code: "KR", Distance: 4600, Type: Submarine},
			{Code: "CN", Distance: 3800, Type: Submarine},
			{Code: "IN", Distance: 3900, Type: Submarine},
			{Code: "AU", Distance: 6000, Type: Submarine},
		},
	},
	{
		Code: "IN", CableConnectionsNumber: 18, InternetExchangesNumber: 7,
		Links: []Link{
			{Code: "SG", Distance: 3900, Type: Submarine},
			{Code: "CN", Distance: 3500, Type: Terrestrial},
			{Code: "ZA", Distance: 7400, Type: Submarine},
		},
	},
	{
		Code: "AU", CableConnectionsNumber: 16, InternetExchangesNumber: 6,
		Links: []Link{
			{Code: "SG", Distance: 6000, Type: Submarine},
			{Code: "JP", Distance: 6600, Type: Submarine},
		},
	},
	{
		Code: "BR", CableConnectionsNumber: 14, InternetExchangesNumber: 8,
		Links: []Link{
			{Code: "US", Distance: 7800, Type: Submarine},
			{Code: "ES", Distance: 8200, Type: Submarine},
			{Code: "ZA", Distance: 6100, Type: Submarine},
		},
	},
	{
		Code: "ZA", CableConnectionsNumber: 9, InternetExchangesNumber: 3,
		Links: []Link{
			{Code: "BR", Distance: 6100, Type: Submarine},
			{Code: "IN", Distance: 7400, Type: Submarine},
		},
	},
}
