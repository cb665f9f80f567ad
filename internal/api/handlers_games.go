package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/models"
	"github.com/gamearr/gamearr/internal/scoring"
)

func (s *Server) listGames(c echo.Context) error {
	games, err := s.repos.Games.List(c.Request().Context())
	if err != nil {
		return fail(c, apperr.Database("list games", err))
	}
	return c.JSON(http.StatusOK, games)
}

func (s *Server) getGame(c echo.Context) error {
	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, game)
}

type createGameRequest struct {
	IgdbID    int64  `json:"igdbId"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Platform  string `json:"platform"`
	CoverURL  string `json:"coverUrl"`
	Monitored *bool  `json:"monitored"`
	LibraryID *int64 `json:"libraryId"`
}

func (s *Server) createGame(c echo.Context) error {
	ctx := c.Request().Context()

	var req createGameRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Title == "" {
		return fail(c, apperr.Validation("title is required"))
	}
	if req.IgdbID == 0 {
		return fail(c, apperr.Validation("igdbId is required"))
	}

	existing, err := s.repos.Games.GetByIgdbID(ctx, req.IgdbID)
	if err != nil {
		return fail(c, apperr.Database("check for duplicate game", err))
	}
	if existing != nil {
		return fail(c, apperr.Conflict("game is already in the library"))
	}

	monitored := true
	if req.Monitored != nil {
		monitored = *req.Monitored
	}

	game, err := s.repos.Games.Create(ctx, &models.Game{
		IgdbID:    req.IgdbID,
		Title:     req.Title,
		Year:      req.Year,
		Platform:  req.Platform,
		CoverURL:  req.CoverURL,
		Monitored: monitored,
		LibraryID: req.LibraryID,
	})
	if err != nil {
		return fail(c, apperr.Database("create game", err))
	}
	return c.JSON(http.StatusCreated, game)
}

type updateGameRequest struct {
	Monitored    *bool   `json:"monitored"`
	UpdatePolicy *string `json:"updatePolicy"`
}

func (s *Server) updateGame(c echo.Context) error {
	ctx := c.Request().Context()

	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}

	var req updateGameRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.Monitored != nil {
		if err := s.repos.Games.SetMonitored(ctx, game.ID, *req.Monitored); err != nil {
			return fail(c, apperr.Database("update monitored flag", err))
		}
	}
	if req.UpdatePolicy != nil {
		policy := models.UpdatePolicy(*req.UpdatePolicy)
		switch policy {
		case models.UpdatePolicyNotify, models.UpdatePolicyAuto, models.UpdatePolicyIgnore:
		default:
			return fail(c, apperr.Validation("updatePolicy must be notify, auto or ignore"))
		}
		if err := s.repos.Games.SetUpdatePolicy(ctx, game.ID, policy); err != nil {
			return fail(c, apperr.Database("update policy", err))
		}
	}

	updated, err := s.repos.Games.GetByID(ctx, game.ID)
	if err != nil {
		return fail(c, apperr.Database("reload game", err))
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteGame(c echo.Context) error {
	ctx := c.Request().Context()
	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}

	// Torrents still seeding from the game's folder are matched by save
	// path; tags may be long gone when a game is removed.
	if c.QueryParam("removeTorrents") == "true" && game.FolderPath != "" {
		torrents, err := s.qbit.FindTorrentsByPath(ctx, game.FolderPath)
		if err != nil {
			return fail(c, err)
		}
		hashes := make([]string, 0, len(torrents))
		for _, t := range torrents {
			hashes = append(hashes, t.Hash)
		}
		if len(hashes) > 0 {
			deleteFiles := c.QueryParam("deleteFiles") == "true"
			if err := s.qbit.DeleteTorrents(ctx, hashes, deleteFiles); err != nil {
				return fail(c, err)
			}
		}
	}

	if err := s.repos.Games.Delete(ctx, game.ID); err != nil {
		return fail(c, apperr.Database("delete game", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// lookupGames searches the metadata provider for titles to add.
func (s *Server) lookupGames(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return fail(c, apperr.Validation("query parameter q is required"))
	}
	results, err := s.igdb.SearchGames(c.Request().Context(), query)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, results)
}

// searchGame runs a manual indexer search and returns ranked candidates.
func (s *Server) searchGame(c echo.Context) error {
	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}
	scored, err := s.searcher.SearchForGame(c.Request().Context(), game)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, scored)
}

// grabGame delegates a chosen release to the torrent daemon.
func (s *Server) grabGame(c echo.Context) error {
	game, err := s.gameFromParam(c)
	if err != nil {
		return fail(c, err)
	}

	var scored scoring.ScoredRelease
	if err := c.Bind(&scored); err != nil {
		return badRequest(c, "invalid request body")
	}
	if scored.DownloadURL == "" {
		return fail(c, apperr.Validation("downloadUrl is required"))
	}

	result, err := s.downloads.GrabRelease(c.Request().Context(), game.ID, scored)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) gameFromParam(c echo.Context) (*models.Game, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, apperr.Validation("invalid game id")
	}
	game, err := s.repos.Games.GetByID(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.Database("load game", err)
	}
	if game == nil {
		return nil, apperr.NotFound("game not found")
	}
	return game, nil
}
