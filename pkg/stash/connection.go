package stash

import "fmt"

// Connection describes how to reach a Stash server. Stash hands this to a
// plugin process as the server_connection object on stdin.
type Connection struct {
	Scheme        string         `json:"Scheme"`
	Host          string         `json:"Host"`
	Port          int            `json:"Port"`
	SessionCookie *SessionCookie `json:"SessionCookie"`
	Dir           string         `json:"Dir"`
	PluginDir     string         `json:"PluginDir"`
}

// SessionCookie carries the authenticated UI session a plugin inherits.
type SessionCookie struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// GraphQLURL returns the GraphQL endpoint for the connection. The wildcard
// listen address is rewritten to localhost so the plugin can dial back in.
func (c Connection) GraphQLURL() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "http"
	}

	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}

	return fmt.Sprintf("%s://%s:%d/graphql", scheme, host, c.Port)
}
