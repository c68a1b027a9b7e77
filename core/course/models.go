package course

type Course struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Duration        string `json:"duration"`
	SessionsPerWeek int    `json:"sessionsPerWeek"`
	Level           string `json:"level"`
}

// Catalog is the reference list of courses offered. The database copy is seeded by migration.
var Catalog = []Course{
	{
		ID:              1,
		Name:            "Beginner English",
		Description:     "Build a strong foundation in English grammar, vocabulary, and basic conversation.",
		Duration:        "12 weeks",
		SessionsPerWeek: 2,
		Level:           "Beginner",
	},
	{
		ID:              2,
		Name:            "Intermediate English",
		Description:     "Enhance your English skills with advanced grammar and fluent conversation practice.",
		Duration:        "16 weeks",
		SessionsPerWeek: 2,
		Level:           "Intermediate",
	},
	{
		ID:              3,
		Name:            "Business English",
		Description:     "Master professional English for the workplace, including presentations and correspondence.",
		Duration:        "10 weeks",
		SessionsPerWeek: 3,
		Level:           "Advanced",
	},
}
