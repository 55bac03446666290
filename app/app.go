package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/acolella/voxpop/config"
	"github.com/acolella/voxpop/sentiment"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	Analyzer *sentiment.Analyzer
}
