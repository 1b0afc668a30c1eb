package schema

// DocumentSchema is the only check applied to a whole stored document:
// the root must be an object holding the four required collections.
// Individual entities are not inspected.
var DocumentSchema = &Schema{
	Type:     "object",
	Required: []string{"products", "customers", "transactions", "settings"},
}

// SettingsSchema guards writes of the settings singleton.
var SettingsSchema = &Schema{
	Type: "object",
	Properties: map[string]*Schema{
		"storeName":         {Type: "string"},
		"taxRate":           {Type: "number", Minimum: Float(0), Maximum: Float(1)},
		"currency":          {Type: "string", MinLength: Int(1)},
		"receiptFooter":     {Type: "string"},
		"lowStockThreshold": {Type: "number", Minimum: Float(0)},
	},
}
