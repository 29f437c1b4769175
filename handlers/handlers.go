package handlers

import (
	"github.com/gin-gonic/gin"

	"scenariochat/db"
	"scenariochat/scenario"
	"scenariochat/workflow"
)

// @title           Scenario Chat Workflow API
// @version         1.0
// @description     Ask natural-language questions about per-scenario databases: conversational answers, generated SQL result tables, charts, and validated parameter changes.

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:9090
// @BasePath  /

// @schemes   http https

type Handlers struct {
	engine    *workflow.Engine
	store     *db.DB
	scenarios *scenario.Store
}

func New(engine *workflow.Engine, store *db.DB, scenarios *scenario.Store) *Handlers {
	return &Handlers{
		engine:    engine,
		store:     store,
		scenarios: scenarios,
	}
}

// userID reads the calling user from the X-User-ID header. There is no user
// system yet, so "admin" stands in for anonymous callers.
func userID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return "admin"
}
