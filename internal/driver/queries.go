package driver

// SchemaQueries is run by BuildIndices.
var SchemaQueries = []string{
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT chat_id IF NOT EXISTS FOR (c:Chat) REQUIRE c.chat_id IS UNIQUE",
	"CREATE CONSTRAINT relationship_graph_user IF NOT EXISTS FOR (g:RelationshipGraph) REQUIRE g.user_id IS UNIQUE",
	"CREATE INDEX chat_user IF NOT EXISTS FOR (c:Chat) ON (c.user_id)",
}

const (
	chatFields = `
		c.chat_id AS chat_id,
		c.user_id AS user_id,
		c.messages AS messages,
		c.created_at AS created_at,
		c.message_count AS message_count,
		c.last_interaction_time AS last_interaction_time`

	GetChatQuery = `
		MATCH (c:Chat {chat_id: $chat_id})
		RETURN` + chatFields

	ListChatsQuery = `
		MATCH (:User {id: $user_id})-[:OWNS]->(c:Chat)
		RETURN` + chatFields

	SaveChatQuery = `
		MERGE (u:User {id: $user_id})
		MERGE (c:Chat {chat_id: $chat_id})
		SET c.user_id = $user_id,
			c.messages = $messages,
			c.created_at = $created_at,
			c.message_count = $message_count,
			c.last_interaction_time = $last_interaction_time
		MERGE (u)-[:OWNS]->(c)
		RETURN c.chat_id AS chat_id
	`

	DeleteChatQuery = `
		MATCH (c:Chat {chat_id: $chat_id})
		DETACH DELETE c
		RETURN count(*) AS deleted
	`

	GetGraphQuery = `
		MATCH (g:RelationshipGraph {user_id: $user_id})
		RETURN g.nodes AS nodes,
			g.links AS links,
			g.last_updated AS last_updated,
			g.version AS version
	`

	SaveGraphQuery = `
		MERGE (u:User {id: $user_id})
		MERGE (g:RelationshipGraph {user_id: $user_id})
		SET g.nodes = $nodes,
			g.links = $links,
			g.last_updated = $last_updated,
			g.version = $version
		MERGE (u)-[:HAS_GRAPH]->(g)
		RETURN g.user_id AS user_id
	`
)
