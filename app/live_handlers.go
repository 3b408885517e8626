package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/app/models"
	"github.com/SatVerseX/mockmate-api/auth"
	"github.com/SatVerseX/mockmate-api/gemini"
)

const liveDialTimeout = 20 * time.Second

// LiveInterview upgrades the request to a websocket and runs the voice
// session against Gemini. The interview must be in created status and belong
// to the caller. Browsers cannot set headers on websocket dials, so the route
// also accepts the token via query parameter (see the router setup).
func LiveInterview(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	iv, err := getInterview(c.Request.Context(), c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "interview not found"})
			return
		}
		log.Printf("live: interview load failed id=%s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interview"})
		return
	}
	if iv.Status != models.InterviewCreated {
		c.JSON(http.StatusConflict, gin.H{"error": "interview already started", "status": iv.Status})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load config"})
		return
	}
	if cfg.Gemini.APIKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "live interviews not configured"})
		return
	}

	// Best effort: the persona prompt works without a profile.
	var profile *models.Profile
	if p, err := getProfileByID(c.Request.Context(), claims.Subject); err == nil {
		profile = &p
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("live: accept failed interview=%s: %v", iv.ID, err)
		return
	}
	conn.SetReadLimit(int64(cfg.Session.MaxClientFrameBytes))

	if err := markInterviewLive(c.Request.Context(), iv.ID); err != nil {
		// Lost the race against another tab opening the same interview.
		conn.Close(websocket.StatusPolicyViolation, "interview already started")
		return
	}

	dialCtx, cancel := context.WithTimeout(c.Request.Context(), liveDialTimeout)
	upstream, err := gemini.DialLive(dialCtx, gemini.LiveConfig{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.LiveModel,
		Endpoint:          cfg.Gemini.LiveEndpoint,
		SystemInstruction: buildInterviewerInstruction(iv.Config, profile),
	})
	cancel()
	if err != nil {
		log.Printf("live: gemini dial failed interview=%s: %v", iv.ID, err)
		if err := finishInterview(c.Request.Context(), iv.ID, models.InterviewAbandoned, 0, 0, ""); err != nil {
			log.Printf("live: abandon after dial failure failed interview=%s: %v", iv.ID, err)
		}
		conn.Close(websocket.StatusInternalError, "interviewer unavailable")
		return
	}

	session := &liveSession{
		interview: iv,
		userID:    claims.Subject,
		grace:     time.Duration(cfg.Session.GraceSeconds) * time.Second,
		client:    conn,
		upstream:  upstream,
		recorder:  &transcriptRecorder{},
		proctor:   newProctorMonitor(cfg.Session.WarningLimit),
		started:   time.Now(),
	}
	session.sendFrame(models.LiveFrame{Type: models.FrameReady})
	session.run(c.Request.Context())
}
