package dmhttp

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

type DMHttp struct {
	r    *gin.Engine
	pool sync.Pool
}

func New() *DMHttp {
	l := &DMHttp{
		r:    gin.Default(),
		pool: sync.Pool{},
	}
	l.r.SetTrustedProxies(nil)
	l.pool.New = func() interface{} {
		return allocateContext()
	}
	return l
}

func NewWithLogger(loggerHandler HandlerFunc) *DMHttp {
	l := &DMHttp{
		r:    gin.New(),
		pool: sync.Pool{},
	}
	l.r.Use(l.DMHttpHandler(loggerHandler))
	l.r.Use(gin.Recovery())
	l.r.SetTrustedProxies(nil)
	l.pool.New = func() interface{} {
		return allocateContext()
	}
	return l
}

// GetGinRoute GetGinRoute
func (l *DMHttp) GetGinRoute() *gin.Engine {
	return l.r
}

func allocateContext() *Context {
	return &Context{Context: nil}
}

// Use Use
func (l *DMHttp) Use(handlers ...HandlerFunc) {
	l.r.Use(l.handlersToGinHandleFunc(handlers)...)
}

type Context struct {
	*gin.Context
}

func (c *Context) reset() {
	c.Context = nil
}

// ResponseError ResponseError
func (c *Context) ResponseError(err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"msg":    err.Error(),
		"status": http.StatusBadRequest,
	})
}

func (c *Context) ResponseErrorWithStatus(status int, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"msg":    err.Error(),
		"status": status,
	})
}

// ResponseOK 返回正确
func (c *Context) ResponseOK() {
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
	})
}

// ResponseOKWithData 返回正确并并携带数据
func (c *Context) ResponseOKWithData(data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   data,
	})
}

// ResponseData 返回状态和数据
func (c *Context) ResponseData(status int, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"data":   data,
	})
}

// ResponseStatus 返回状态
func (c *Context) ResponseStatus(status int) {
	c.JSON(http.StatusOK, gin.H{
		"status": status,
	})
}

// HandlerFunc HandlerFunc
type HandlerFunc func(c *Context)

// DMHttpHandler DMHttpHandler
func (l *DMHttp) DMHttpHandler(handlerFunc HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		hc := l.pool.Get().(*Context)
		hc.reset()
		hc.Context = c
		handlerFunc(hc)
		l.pool.Put(hc)
	}
}

// Run Run
func (l *DMHttp) Run(addr ...string) error {
	return l.r.Run(addr...)
}

// POST POST
func (l *DMHttp) POST(relativePath string, handlers ...HandlerFunc) {
	l.r.POST(relativePath, l.handlersToGinHandleFunc(handlers)...)
}

// GET GET
func (l *DMHttp) GET(relativePath string, handlers ...HandlerFunc) {
	l.r.GET(relativePath, l.handlersToGinHandleFunc(handlers)...)
}

// DELETE DELETE
func (l *DMHttp) DELETE(relativePath string, handlers ...HandlerFunc) {
	l.r.DELETE(relativePath, l.handlersToGinHandleFunc(handlers)...)
}

// Any Any
func (l *DMHttp) Any(relativePath string, handlers ...HandlerFunc) {
	l.r.Any(relativePath, l.handlersToGinHandleFunc(handlers)...)
}

func (l *DMHttp) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	l.r.ServeHTTP(w, req)
}

func (l *DMHttp) handlersToGinHandleFunc(handlers []HandlerFunc) []gin.HandlerFunc {
	newHandlers := make([]gin.HandlerFunc, 0, len(handlers))
	for _, handler := range handlers {
		newHandlers = append(newHandlers, l.DMHttpHandler(handler))
	}
	return newHandlers
}
