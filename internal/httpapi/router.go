// Package httpapi wires the REST surface from spec §6 onto gin, generalized
// from the teacher's adapters/http router (session cookie + client-token
// middleware pattern, gin.New()+Recovery(), grouped /api routes).
package httpapi

import (
	"time"

	"github.com/dkeye/confcore/internal/auth"
	"github.com/dkeye/confcore/internal/config"
	"github.com/dkeye/confcore/internal/filestore"
	"github.com/dkeye/confcore/internal/meeting"
	"github.com/dkeye/confcore/internal/minutes"
	"github.com/dkeye/confcore/internal/recording"
	"github.com/dkeye/confcore/internal/signaling"
	"github.com/dkeye/confcore/internal/store/cache"
	"github.com/dkeye/confcore/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps collects every service the router dispatches into, assembled once in
// cmd/server/main.go's dependency-injection graph.
type Deps struct {
	Config     *config.Config
	Verifier   *auth.Verifier
	Users      *user.Service
	Meetings   *meeting.Service
	Minutes    *minutes.Pipeline
	Recordings *recording.Service
	Cache      cache.Store
	Files      *filestore.Store
	Signal     *signaling.Controller
}

func NewRouter(deps *Deps) *gin.Engine {
	if deps.Config.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if deps.Config.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.Config.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Sec-WebSocket-Protocol"},
		AllowCredentials: true,
	}))
	r.Use(IPRateLimit(deps.Cache, deps.Config.RateLimitRequests, deps.Config.RateLimitWindow))
	r.SetTrustedProxies([]string{"0.0.0.0/0"})

	h := &handlers{deps: deps}

	r.GET("/ws", deps.Signal.HandleWS)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", LoginRateLimit(deps.Cache, loginRateLimitAttempts, loginRateLimitWindow), h.login)
	authGroup.POST("/guest", h.guest)
	authed := authGroup.Group("", AuthRequired(deps.Verifier))
	authed.GET("/me", h.me)
	authed.PUT("/profile", h.updateProfile)
	authed.POST("/logout", h.logout)

	meetings := api.Group("/meetings", AuthRequired(deps.Verifier))
	meetings.POST("", h.createMeeting)
	meetings.POST("/schedule", h.scheduleMeeting)
	meetings.GET("", h.listMeetings)
	meetings.GET("/ice-servers", h.iceServers)
	meetings.GET("/:meetingId", h.getMeeting)
	meetings.POST("/:meetingId/join", h.joinMeeting)
	meetings.POST("/:meetingId/leave", h.leaveMeeting)
	meetings.PUT("/:meetingId/settings", h.updateSettings)
	meetings.POST("/:meetingId/end", h.endMeeting)
	meetings.POST("/:meetingId/cancel", h.cancelMeeting)
	meetings.POST("/:meetingId/transcripts", h.appendTranscript)
	meetings.GET("/:meetingId/transcripts", h.listTranscripts)

	chat := api.Group("/chat", AuthRequired(deps.Verifier))
	chat.POST("/message", h.postChatMessage)
	chat.POST("/upload", h.uploadChatFile)
	chat.GET("/:meetingId", h.listChat)

	recordings := api.Group("/recordings", AuthRequired(deps.Verifier))
	recordings.POST("/start", h.startRecording)
	recordings.POST("/stop", h.stopRecording)
	recordings.POST("/upload", h.uploadRecording)
	recordings.GET("/my-recordings", h.myRecordings)

	mom := api.Group("/meeting-minutes", AuthRequired(deps.Verifier))
	mom.POST("/:meetingId/generate", h.generateMinutes)
	mom.GET("/:meetingId", h.getMinutes)
	mom.GET("", h.listMinutes)
	mom.POST("/:meetingId/resend-email", h.resendMinutesEmail)

	return r
}

type handlers struct {
	deps *Deps
}

// defaultTimeout is spec §7's ambient request budget; the minutes generate
// endpoint overrides it to accommodate a synchronous LLM round trip.
const defaultTimeout = 10 * time.Second
const minutesGenerateTimeout = 60 * time.Second

// loginRateLimitAttempts/Window is spec §8 scenario 5's dedicated login
// throttle: 5 attempts per minute per client IP.
const loginRateLimitAttempts = 5
const loginRateLimitWindow = time.Minute
