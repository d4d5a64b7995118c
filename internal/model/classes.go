package model

// ShoeClasses lists the shoe model's labels in output order.
var ShoeClasses = []string{
	"air_jordan_4",
	"air_jordan_1",
	"adidas_superstar",
	"air_jordan_3",
	"air_jordan_2",
	"air_jordan_5",
	"air_jordan_6",
	"air_zoom_pegasus_35",
	"asics_gel_contend_4",
	"brooks_cascadia_13",
	"converse_chuck_taylor_high",
	"Lebron_13",
	"Lebron_14",
	"Lebron_15",
	"Lebron_16",
	"vans_old_skool",
}
