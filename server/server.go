package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"flownet/model"
	"flownet/network"
	"flownet/report"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	sim      *simulation
	engine   *gin.Engine
}

// allowOrigin 为空时允许所有来源
func NewServer(addr, allowOrigin string, runner *network.Runner) *Server {
	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sim: newSimulation(runner),
	}
	if allowOrigin == "" || allowOrigin == "*" {
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}
	s.engine = s.setupRouter(allowOrigin)
	return s
}

func (s *Server) setupRouter(allowOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	config := cors.DefaultConfig()
	if allowOrigin == "" || allowOrigin == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = strings.Split(allowOrigin, ",")
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type"}
	r.Use(cors.New(config))

	api := r.Group("/v1")
	{
		api.GET("/quantities", s.getQuantities)
		api.GET("/history", s.getHistory)
		api.GET("/plot/:index", s.getPlot)
		api.GET("/status", s.getStatus)
		api.POST("/start", s.postStart)
		api.POST("/stop", s.postStop)
		api.POST("/reset", s.postReset)
	}
	r.GET("/ws", s.serveWs)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request")
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Serve() error {
	log.WithField("addr", s.addr).Info("server listening")
	return s.engine.Run(s.addr)
}

// 停止正在运行的模拟
func (s *Server) Shutdown() {
	_ = s.sim.stop()
}

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(data any) apiResponse {
	return apiResponse{Message: "success", Data: data}
}

func fail(status int, err error) apiResponse {
	return apiResponse{Code: status, Message: err.Error()}
}

func (s *Server) getQuantities(c *gin.Context) {
	c.JSON(http.StatusOK, success(s.sim.runner.Quantities()))
}

type historyQuery struct {
	From  *float64 `form:"from"`
	To    *float64 `form:"to"`
	Index []int    `form:"index"`
}

// 按时间段和观测量筛选历史结果
func (s *Server) getHistory(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, fail(http.StatusBadRequest, err))
		return
	}
	n := len(s.sim.runner.Quantities())
	for _, i := range q.Index {
		if i < 0 || i >= n {
			c.JSON(http.StatusBadRequest, fail(http.StatusBadRequest, errors.New("quantity index out of range: "+strconv.Itoa(i))))
			return
		}
	}
	var out []model.Snapshot
	for _, snap := range s.sim.runner.History() {
		if q.From != nil && snap.Time < *q.From || q.To != nil && snap.Time > *q.To {
			continue
		}
		if len(q.Index) > 0 {
			values := make([]float64, len(q.Index))
			for k, i := range q.Index {
				values[k] = snap.Values[i]
			}
			snap.Values = values
		}
		out = append(out, snap)
	}
	c.JSON(http.StatusOK, success(out))
}

// 趋势图，index 可为逗号分隔的多个观测量
func (s *Server) getPlot(c *gin.Context) {
	var indices []int
	for _, part := range strings.Split(c.Param("index"), ",") {
		i, err := strconv.Atoi(part)
		if err != nil {
			c.JSON(http.StatusBadRequest, fail(http.StatusBadRequest, err))
			return
		}
		indices = append(indices, i)
	}
	var buf bytes.Buffer
	err := report.Trend(&buf, s.sim.runner.History(), s.sim.runner.Quantities(), indices...)
	if errors.Is(err, report.ErrNoData) {
		c.JSON(http.StatusNotFound, fail(http.StatusNotFound, err))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, fail(http.StatusInternalServerError, err))
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, success(s.sim.status()))
}

func (s *Server) postStart(c *gin.Context) {
	if err := s.sim.start(); err != nil {
		c.JSON(http.StatusConflict, fail(http.StatusConflict, err))
		return
	}
	c.JSON(http.StatusOK, success(s.sim.status()))
}

func (s *Server) postStop(c *gin.Context) {
	if err := s.sim.stop(); err != nil {
		c.JSON(http.StatusConflict, fail(http.StatusConflict, err))
		return
	}
	c.JSON(http.StatusOK, success(s.sim.status()))
}

func (s *Server) postReset(c *gin.Context) {
	if err := s.sim.reset(); err != nil {
		c.JSON(http.StatusConflict, fail(http.StatusConflict, err))
		return
	}
	c.JSON(http.StatusOK, success(s.sim.status()))
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()
	hub := newHub(s.sim, conn)
	defer hub.close()
	go hub.handleRequest()
	go hub.handleResponse()
	for {
		var msg model.Msg
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read")
			}
			return
		}
		hub.msg <- msg
	}
}
