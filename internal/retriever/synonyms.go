package retriever

// synonyms is the built-in query-expansion map (spec.md §4.5). It is a
// fixed table, not a learned one. Nothing replaces it at runtime: the
// retrieval.synonym_file config setting is loaded but not read.
var synonyms = map[string][]string{
	"auth":           {"authentication", "login", "signin"},
	"authentication": {"auth", "login", "signin"},
	"login":          {"auth", "authentication", "signin"},
	"signin":         {"auth", "authentication", "login"},
	"db":             {"database", "sql", "postgres", "mongodb"},
	"database":       {"db", "sql", "postgres", "mongodb"},
	"sql":            {"db", "database", "postgres", "mongodb"},
	"postgres":       {"db", "database", "sql", "mongodb"},
	"mongodb":        {"db", "database", "sql", "postgres"},
	"error":          {"bug", "fix", "issue", "crash"},
	"bug":            {"error", "fix", "issue", "crash"},
	"fix":            {"error", "bug", "issue", "crash"},
	"issue":          {"error", "bug", "fix", "crash"},
	"crash":          {"error", "bug", "fix", "issue"},
	"api":            {"endpoint", "route", "rest", "graphql"},
	"endpoint":       {"api", "route", "rest", "graphql"},
	"route":          {"api", "endpoint", "rest", "graphql"},
	"rest":           {"api", "endpoint", "route", "graphql"},
	"graphql":        {"api", "endpoint", "route", "rest"},
}
