package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"videorag/config"
	"videorag/logging"
)

// GraphStore is the write/read surface of the knowledge graph. Content
// nodes are linked to entity nodes through CONTAINS_ENTITY relationships.
type GraphStore interface {
	StoreContentWithEntities(ctx context.Context, docID, content string, metadata map[string]interface{}, entities []string) error
	GetAllEntities(ctx context.Context) ([]GraphNode, error)
	GetWholeGraph(ctx context.Context) (*Graph, error)
	GetFactsForEntity(ctx context.Context, entityName string) ([]string, error)
	DeleteAll(ctx context.Context) error
	Close(ctx context.Context) error
}

type GraphNode struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Properties map[string]interface{} `json:"properties"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

type Graph struct {
	Nodes      []GraphNode `json:"nodes"`
	Edges      []GraphEdge `json:"edges"`
	TotalNodes int         `json:"total_nodes"`
	TotalEdges int         `json:"total_edges"`
}

// maxEntitiesPerContent caps how many entity nodes one content node links to.
const maxEntitiesPerContent = 10

// Neo4jGraphStore is the production graph backend. Construction fails hard
// when the database is unreachable; there is no in-memory fallback, so a
// misconfigured graph store is caught at startup rather than silently
// swallowing writes.
type Neo4jGraphStore struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logging.Logger
}

func NewNeo4jGraphStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Neo4jGraphStore, error) {
	uri := strings.TrimSpace(cfg.Neo4jURI)
	if uri == "" {
		return nil, fmt.Errorf("neo4j: uri not configured")
	}

	auth := neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(c *neo4j.Config) {
		c.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Neo4jGraphStore{
		driver:   driver,
		database: cfg.Neo4jDatabase,
		log:      log.With("component", "graph_store"),
	}, nil
}

// EntityNodeID derives the stable graph id for an entity name.
func EntityNodeID(name string) string {
	return "entity:" + strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

// StoreContentWithEntities merges a content node, one entity node per
// extracted entity (capped) and the connecting relationships. Content text
// is truncated so the graph stays a fact index, not a document store.
func (s *Neo4jGraphStore) StoreContentWithEntities(ctx context.Context, docID, content string, metadata map[string]interface{}, entities []string) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	if len(entities) > maxEntitiesPerContent {
		entities = entities[:maxEntitiesPerContent]
	}
	snippet := content
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		if _, err := tx.Run(ctx, `
			MERGE (c:Content {node_id: $doc_id})
			SET c.content = $content, c += $props
		`, map[string]interface{}{
			"doc_id":  docID,
			"content": snippet,
			"props":   primitiveProps(metadata),
		}); err != nil {
			return nil, err
		}

		for _, entityName := range entities {
			if _, err := tx.Run(ctx, `
				MERGE (e:Entity {node_id: $entity_id})
				SET e.name = $name, e.type = 'extracted'
				WITH e
				MATCH (c:Content {node_id: $doc_id})
				MERGE (c)-[:CONTAINS_ENTITY]->(e)
			`, map[string]interface{}{
				"entity_id": EntityNodeID(entityName),
				"name":      entityName,
				"doc_id":    docID,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j: store content %s: %w", docID, err)
	}
	s.log.Info("stored content in graph", "doc_id", docID, "entities", len(entities))
	return nil
}

func (s *Neo4jGraphStore) GetAllEntities(ctx context.Context) ([]GraphNode, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, `MATCH (e:Entity) RETURN e.node_id AS id, properties(e) AS props`, nil)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: list entities: %w", err)
	}

	var nodes []GraphNode
	for _, rec := range records.([]*neo4j.Record) {
		id, _ := rec.Get("id")
		props, _ := rec.Get("props")
		nodes = append(nodes, GraphNode{
			ID:         asString(id),
			Label:      "Entity",
			Properties: asMap(props),
		})
	}
	return nodes, nil
}

func (s *Neo4jGraphStore) GetWholeGraph(ctx context.Context) (*Graph, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	graph := &Graph{}
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		nodeResult, err := tx.Run(ctx, `
			MATCH (n) RETURN n.node_id AS id, head(labels(n)) AS label, properties(n) AS props
		`, nil)
		if err != nil {
			return nil, err
		}
		nodeRecords, err := nodeResult.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range nodeRecords {
			id, _ := rec.Get("id")
			label, _ := rec.Get("label")
			props, _ := rec.Get("props")
			graph.Nodes = append(graph.Nodes, GraphNode{
				ID:         asString(id),
				Label:      asString(label),
				Properties: asMap(props),
			})
		}

		edgeResult, err := tx.Run(ctx, `
			MATCH (a)-[r]->(b) RETURN a.node_id AS source, b.node_id AS target, type(r) AS label
		`, nil)
		if err != nil {
			return nil, err
		}
		edgeRecords, err := edgeResult.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range edgeRecords {
			source, _ := rec.Get("source")
			target, _ := rec.Get("target")
			label, _ := rec.Get("label")
			graph.Edges = append(graph.Edges, GraphEdge{
				Source: asString(source),
				Target: asString(target),
				Label:  asString(label),
			})
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: whole graph: %w", err)
	}
	graph.TotalNodes = len(graph.Nodes)
	graph.TotalEdges = len(graph.Edges)
	return graph, nil
}

// GetFactsForEntity renders the entity's properties and relationships as
// human-readable fact strings. Unknown entities yield an empty list.
func (s *Neo4jGraphStore) GetFactsForEntity(ctx context.Context, entityName string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, `
			MATCH (e:Entity {node_id: $entity_id})
			OPTIONAL MATCH (e)-[r]-(other)
			RETURN properties(e) AS props, type(r) AS rel, head(labels(other)) AS other_label,
				coalesce(other.name, other.node_id) AS other_name
		`, map[string]interface{}{"entity_id": EntityNodeID(entityName)})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: facts for %s: %w", entityName, err)
	}

	recs := records.([]*neo4j.Record)
	if len(recs) == 0 {
		return nil, nil
	}

	var facts []string
	props, _ := recs[0].Get("props")
	for k, v := range asMap(props) {
		if k == "node_id" || k == "name" {
			continue
		}
		facts = append(facts, fmt.Sprintf("%s has %s: %v", entityName, k, v))
	}
	facts = append(facts, fmt.Sprintf("%s is an Entity node in the knowledge graph.", entityName))
	for _, rec := range recs {
		rel, _ := rec.Get("rel")
		if rel == nil {
			continue
		}
		otherLabel, _ := rec.Get("other_label")
		otherName, _ := rec.Get("other_name")
		facts = append(facts, fmt.Sprintf("%s %s %s: %s", entityName, asString(rel), asString(otherLabel), asString(otherName)))
	}
	return facts, nil
}

func (s *Neo4jGraphStore) DeleteAll(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j: delete all: %w", err)
	}
	return nil
}

func (s *Neo4jGraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// primitiveProps filters metadata down to values neo4j accepts as node
// properties.
func primitiveProps(metadata map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{}
	for k, v := range metadata {
		switch v.(type) {
		case string, bool, int, int64, float64:
			props[k] = v
		}
	}
	return props
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
