package domain

// GarmentTypes are the categories offered by the registration form. Type is
// free text, so garments may carry other values.
var GarmentTypes = []string{
	"Camisa",
	"Pantalón",
	"Vestido",
	"Chaqueta",
	"Falda",
	"Blusa",
	"Short",
	"Abrigo",
}
