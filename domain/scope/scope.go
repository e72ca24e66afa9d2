// Package scope identifies the aggregation level of a billing query.
package scope

import "fmt"

// Level is the aggregation level of a request.
type Level int

const (
	LevelServer Level = iota
	LevelUser
	LevelProject
	LevelAll
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelServer:
		return "server"
	case LevelUser:
		return "user"
	case LevelProject:
		return "project"
	case LevelAll:
		return "all"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Scope selects exactly one server, user, project, or the whole cloud.
// ID is empty for LevelAll.
type Scope struct {
	Level Level
	ID    string
}

// Server scopes a query to a single instance.
func Server(instanceID string) Scope { return Scope{Level: LevelServer, ID: instanceID} }

// User scopes a query to one user's servers.
func User(userID string) Scope { return Scope{Level: LevelUser, ID: userID} }

// Project scopes a query to every user of a project.
func Project(projectID string) Scope { return Scope{Level: LevelProject, ID: projectID} }

// All scopes a query to the whole cloud.
func All() Scope { return Scope{Level: LevelAll} }
