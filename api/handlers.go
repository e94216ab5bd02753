package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const postTaskMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance. feed may be
// nil, in which case no change events are published.
func Register(e *echo.Echo, svc TaskService, feed ChangePublisher, logger *log.Logger) {
	g := e.Group("/api/task", GzipRequestMiddleware())
	g.POST("/createTask", createTask(svc))
	g.GET("/getAllTask", getAllTasks(svc, logger))
	g.PUT("/updateTask/:id", updateTask(svc))
	g.DELETE("/deleteTask/:id", deleteTask(svc))
	g.GET("/task/:id", getSingleTask(svc))

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Task board API is running")
	})
	e.GET("/healthz", healthz(svc))
	e.RouteNotFound("/*", func(c echo.Context) error {
		return respondError(c, http.StatusNotFound, "API route not found")
	})

	if feed != nil {
		initChangeSender(feed, logger)
	}
}

func healthz(_ TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		//TODO: probe the task table once a cheap storage ping exists
		return c.NoContent(http.StatusNoContent)
	}
}

func respondError(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Message: msg})
}

// respondServiceError maps the domain error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is logged and reported with the generic
// internalMsg so no storage detail reaches the caller.
func respondServiceError(c echo.Context, err error, internalMsg string) error {
	var verr domain.ValidationError
	if errors.As(err, &verr) {
		return respondError(c, http.StatusBadRequest, verr.Reason)
	}
	var nferr domain.NotFoundError
	if errors.As(err, &nferr) {
		return respondError(c, http.StatusNotFound, "Task not found")
	}
	c.Logger().Error(err)
	return respondError(c, http.StatusInternalServerError, internalMsg)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func createTask(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, http.StatusBadRequest, "invalid body")
		}

		task, err := svc.Create(c.Request().Context(), domain.CreateTaskInput{
			Title:       req.Title,
			Description: req.Description,
		})
		if err != nil {
			return respondServiceError(c, err, "Internal server error while creating task")
		}

		publishChange(domain.TaskCreated, task.ID)
		return c.JSON(http.StatusCreated, envelope{
			Success: true,
			Message: "Task created successfully",
			Data:    task,
		})
	}
}

func getAllTasks(svc TaskService, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		q := domain.ListQuery{
			Search: c.QueryParam("search"),
			Status: c.QueryParam("status"),
		}
		metrics.SetSearchProvided(q.Search != "")
		metrics.SetStatusFilter(q.Status)

		fetchStart := time.Now()
		tasks, listErr := svc.List(ctx, q)
		metrics.ObserveFetch(time.Since(fetchStart))
		if listErr != nil {
			var verr domain.ValidationError
			if errors.As(listErr, &verr) {
				metrics.SetErrorStage("invalid_filter")
			} else {
				metrics.SetErrorStage("storage")
			}
			err = respondServiceError(c, listErr, "Internal server error while fetching tasks")
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		count := len(tasks)
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, envelope{Success: true, Data: tasks, Count: &count})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func updateTask(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, http.StatusBadRequest, "invalid body")
		}

		upd := domain.TaskUpdate{Title: req.Title, Description: req.Description}
		if req.Status != nil {
			status := domain.Status(*req.Status)
			upd.Status = &status
		}

		task, err := svc.Update(c.Request().Context(), c.Param("id"), upd)
		if err != nil {
			return respondServiceError(c, err, "Internal server error while updating task")
		}

		publishChange(domain.TaskUpdated, task.ID)
		return c.JSON(http.StatusOK, envelope{
			Success: true,
			Message: "Task updated successfully",
			Data:    task,
		})
	}
}

func deleteTask(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if err := svc.Delete(c.Request().Context(), id); err != nil {
			return respondServiceError(c, err, "Internal server error while deleting task")
		}

		publishChange(domain.TaskDeleted, id)
		return c.JSON(http.StatusOK, envelope{
			Success: true,
			Message: "Task deleted successfully",
		})
	}
}

func getSingleTask(svc TaskService) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := svc.GetByID(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondServiceError(c, err, "Internal server error")
		}
		return c.JSON(http.StatusOK, envelope{Success: true, Data: task})
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, postTaskMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
