package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kart-io/adas-copilot/internal/model"
)

// Relationship types understood by the dependency and system views.
const (
	RelDependsOn  = "DEPENDS_ON"
	RelPartOf     = "PART_OF"
	RelSuppliedBy = "SUPPLIED_BY"
)

// memEntity 为内存图谱中的实体节点。
type memEntity struct {
	Name       string
	Type       string
	Value      string
	Confidence float64
}

// memEdge 为有向类型边,遍历时按无向处理。
type memEdge struct {
	From string
	To   string
	Type string
}

// MemoryGraph 是 GraphStore 的内存实现,用于开发模式和测试。
// 遍历语义与 Neo4j 实现保持一致:无向、最短跳数、去重。
type MemoryGraph struct {
	mu       sync.RWMutex
	entities map[string]*memEntity
	edges    []*memEdge
}

// NewMemoryGraph creates an empty in-memory graph store.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{entities: make(map[string]*memEntity)}
}

// AddEntity registers an entity node, replacing any previous node with
// the same name.
func (g *MemoryGraph) AddEntity(name, entityType, value string, confidence float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities[name] = &memEntity{Name: name, Type: entityType, Value: value, Confidence: confidence}
}

// AddEdge registers a directed typed relationship between two entities.
func (g *MemoryGraph) AddEdge(from, to, relType string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, &memEdge{From: from, To: to, Type: relType})
}

// neighbor 为无向邻接项,记录到达邻居所用的关系类型。
type neighbor struct {
	name    string
	relType string
}

func (g *MemoryGraph) neighbors(relTypes []string) map[string][]neighbor {
	allowed := func(t string) bool {
		if len(relTypes) == 0 {
			return true
		}
		for _, rt := range relTypes {
			if rt == t {
				return true
			}
		}
		return false
	}

	adj := make(map[string][]neighbor)
	for _, e := range g.edges {
		if !allowed(e.Type) {
			continue
		}
		adj[e.From] = append(adj[e.From], neighbor{name: e.To, relType: e.Type})
		adj[e.To] = append(adj[e.To], neighbor{name: e.From, relType: e.Type})
	}
	return adj
}

// RelatedEntities performs an undirected breadth-first traversal out to
// maxDepth hops. The start entity is excluded; each reachable entity is
// reported once at its shortest hop distance with the relationship types
// along one shortest path.
func (g *MemoryGraph) RelatedEntities(_ context.Context, entityName string, maxDepth int, relationshipTypes []string) ([]model.RelatedEntity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.entities[entityName]; !ok {
		return []model.RelatedEntity{}, nil
	}

	adj := g.neighbors(relationshipTypes)

	type visit struct {
		name string
		path []string
	}
	seen := map[string]bool{entityName: true}
	frontier := []visit{{name: entityName}}
	var results []model.RelatedEntity

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []visit
		for _, v := range frontier {
			for _, nb := range adj[v.name] {
				if seen[nb.name] {
					continue
				}
				seen[nb.name] = true
				path := append(append([]string{}, v.path...), nb.relType)
				next = append(next, visit{name: nb.name, path: path})

				ent, ok := g.entities[nb.name]
				if !ok {
					continue
				}
				results = append(results, model.RelatedEntity{
					Name:             ent.Name,
					Type:             ent.Type,
					Value:            ent.Value,
					Distance:         depth,
					RelationshipPath: path,
				})
			}
		}
		frontier = next
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Name < results[j].Name
	})
	if len(results) > RelatedEntityLimit {
		results = results[:RelatedEntityLimit]
	}
	return results, nil
}

// ComponentDependencies collects the four one-hop dependency views of a
// component. Every slice is non-nil.
func (g *MemoryGraph) ComponentDependencies(_ context.Context, componentName string) (*model.ComponentDependencies, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := &model.ComponentDependencies{
		Dependencies: []string{},
		RequiredBy:   []string{},
		Systems:      []string{},
		Suppliers:    []string{},
	}
	for _, e := range g.edges {
		switch e.Type {
		case RelDependsOn:
			if e.From == componentName {
				deps.Dependencies = append(deps.Dependencies, e.To)
			}
			if e.To == componentName {
				deps.RequiredBy = append(deps.RequiredBy, e.From)
			}
		case RelPartOf:
			if e.From == componentName {
				deps.Systems = append(deps.Systems, e.To)
			}
		case RelSuppliedBy:
			if e.From == componentName {
				deps.Suppliers = append(deps.Suppliers, e.To)
			}
		}
	}
	sort.Strings(deps.Dependencies)
	sort.Strings(deps.RequiredBy)
	sort.Strings(deps.Systems)
	sort.Strings(deps.Suppliers)
	return deps, nil
}

// SystemComponents lists components PART_OF a system, with each
// component's suppliers.
func (g *MemoryGraph) SystemComponents(_ context.Context, systemName string) ([]model.SystemComponent, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	suppliers := make(map[string][]string)
	for _, e := range g.edges {
		if e.Type == RelSuppliedBy {
			suppliers[e.From] = append(suppliers[e.From], e.To)
		}
	}

	var components []model.SystemComponent
	for _, e := range g.edges {
		if e.Type != RelPartOf || e.To != systemName {
			continue
		}
		ent, ok := g.entities[e.From]
		if !ok {
			continue
		}
		sup := suppliers[ent.Name]
		if sup == nil {
			sup = []string{}
		}
		sort.Strings(sup)
		components = append(components, model.SystemComponent{
			Name:      ent.Name,
			Value:     ent.Value,
			Suppliers: sup,
		})
	}
	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })
	return components, nil
}

// SearchEntities matches entities whose name contains the pattern,
// case-insensitive, ordered by confidence then name.
func (g *MemoryGraph) SearchEntities(_ context.Context, pattern string, entityTypes []string) ([]model.GraphEntity, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	typeAllowed := func(t string) bool {
		if len(entityTypes) == 0 {
			return true
		}
		for _, et := range entityTypes {
			if et == t {
				return true
			}
		}
		return false
	}

	var matches []model.GraphEntity
	for _, ent := range g.entities {
		if !matchesPattern(ent.Name, pattern) || !typeAllowed(ent.Type) {
			continue
		}
		matches = append(matches, model.GraphEntity{
			Name:       ent.Name,
			Type:       ent.Type,
			Value:      ent.Value,
			Confidence: ent.Confidence,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > PatternSearchLimit {
		matches = matches[:PatternSearchLimit]
	}
	return matches, nil
}

// Stats summarizes entity and relationship counts.
func (g *MemoryGraph) Stats(_ context.Context) (*model.GraphStats, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	typeSet := make(map[string]struct{})
	for _, ent := range g.entities {
		typeSet[ent.Type] = struct{}{}
	}
	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	return &model.GraphStats{
		TotalEntities:      int64(len(g.entities)),
		TotalRelationships: int64(len(g.edges)),
		EntityTypes:        types,
	}, nil
}

// Ping always succeeds for the in-memory graph.
func (g *MemoryGraph) Ping(_ context.Context) error { return nil }

var _ GraphStore = (*MemoryGraph)(nil)
