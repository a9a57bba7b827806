package model

// SearchMode selects which evidence sources a search uses.
type SearchMode string

// Supported search modes.
const (
	SearchModeVector SearchMode = "vector"
	SearchModeGraph  SearchMode = "graph"
	SearchModeHybrid SearchMode = "hybrid"
)

// Valid reports whether the search mode is one of the supported values.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeVector, SearchModeGraph, SearchModeHybrid:
		return true
	}
	return false
}

// SearchResult is the unit returned to callers. It is produced per-query
// and never persisted.
type SearchResult struct {
	ChunkID       string        `json:"chunk_id"`
	DocumentID    string        `json:"document_id"`
	Content       string        `json:"content"`
	Score         float64       `json:"score"`
	DocumentTitle string        `json:"document_title,omitempty"`
	Filename      string        `json:"document_filename,omitempty"`
	ContentType   ContentType   `json:"content_type,omitempty"`
	VehicleSystem VehicleSystem `json:"vehicle_system,omitempty"`
	ComponentName string        `json:"component_name,omitempty"`
}

// SearchSummary describes how a search was executed and how the results
// distribute over content types.
type SearchSummary struct {
	TotalResults       int            `json:"total_results"`
	SearchTerms        []string       `json:"search_terms"`
	ContentTypes       []string       `json:"content_types,omitempty"`
	VehicleSystems     []string       `json:"vehicle_systems,omitempty"`
	ResultDistribution map[string]int `json:"result_distribution"`
}

// SearchResponse is the structured response for lexical and hybrid search.
// Error is populated instead of raising when the search fails for
// structural reasons; callers must check it.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Summary *SearchSummary `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// RelatedEntity is one entity discovered by bounded-depth graph traversal.
type RelatedEntity struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Value            string   `json:"value,omitempty"`
	Distance         int      `json:"distance"`
	RelationshipPath []string `json:"relationship_path"`
}

// ComponentDependencies groups the four dependency views of a component.
// Slices are empty, never nil, when a view has no members.
type ComponentDependencies struct {
	Dependencies []string `json:"dependencies"`
	RequiredBy   []string `json:"required_by"`
	Systems      []string `json:"systems"`
	Suppliers    []string `json:"suppliers"`
}

// SystemComponent is one component belonging to a vehicle system.
type SystemComponent struct {
	Name      string   `json:"name"`
	Value     string   `json:"value,omitempty"`
	Suppliers []string `json:"suppliers"`
}

// GraphEntity is an entity matched by pattern search.
type GraphEntity struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Value      string  `json:"value,omitempty"`
	Confidence float64 `json:"confidence_score"`
}

// GraphStats summarizes the knowledge graph.
type GraphStats struct {
	TotalEntities      int64    `json:"total_entities"`
	TotalRelationships int64    `json:"total_relationships"`
	EntityTypes        []string `json:"entity_types"`
}
