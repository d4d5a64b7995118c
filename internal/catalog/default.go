package catalog

var defaultPrices = map[string]PriceRange{
	"Lebron_13":                  {100, 220},
	"Lebron_14":                  {100, 280},
	"Lebron_15":                  {120, 380},
	"Lebron_16":                  {120, 300},
	"adidas_superstar":           {80, 150},
	"air_jordan_1":               {120, 500},
	"air_jordan_2":               {120, 400},
	"air_jordan_3":               {120, 420},
	"air_jordan_4":               {120, 500},
	"air_jordan_5":               {120, 450},
	"air_jordan_6":               {120, 320},
	"air_zoom_pegasus_35":        {50, 120},
	"asics_gel_contend_4":        {35, 59},
	"brooks_cascadia_13":         {85, 130},
	"converse_chuck_taylor_high": {55, 200},
	"vans_old_skool":             {60, 200},
}

// Default returns the built-in shoe price table.
func Default() *Catalog {
	c, err := New(defaultPrices)
	if err != nil {
		panic(err)
	}
	return c
}
