package validators

import "go.mongodb.org/mongo-driver/bson"

// Start and end are fixed-width "YYYY-MM-DD HH:MM:SS" strings, so the pattern
// doubles as a shape check for the lexicographic range queries.
var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"resource_id",
			"start",
			"end",
			"purpose_of_use",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"resource_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`,
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`,
			},

			"purpose_of_use": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"color": bson.M{
				"bsonType": "string",
			},

			"user_id": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
