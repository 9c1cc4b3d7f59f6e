package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Nigel-Baldwen/Ascension/internal/grid"
	"github.com/Nigel-Baldwen/Ascension/internal/pathfind"
	"github.com/Nigel-Baldwen/Ascension/internal/unit"
	"github.com/Nigel-Baldwen/Ascension/internal/world"
)

type moveRequest struct {
	Unit string `json:"unit" binding:"required,uuid"`
	Row  *int   `json:"row" binding:"required"`
	Col  *int   `json:"col" binding:"required"`
}

type cancelRequest struct {
	Unit string `json:"unit" binding:"required,uuid"`
}

type spawnRequest struct {
	Type string `json:"type" binding:"required"`
	Row  *int   `json:"row" binding:"required"`
	Col  *int   `json:"col" binding:"required"`
}

type customMapRequest struct {
	Size    int            `json:"size" binding:"required,min=5,max=512"`
	Terrain []grid.Terrain `json:"terrain" binding:"required"`
}

type unitView struct {
	ID       uuid.UUID     `json:"id"`
	Type     string        `json:"type"`
	Player   unit.PlayerID `json:"player"`
	Location grid.Cell     `json:"location"`
}

func SetupRouter(broadcaster *world.Broadcaster, gameWorld *world.World) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	api.GET("/state", stateHandler(gameWorld))
	api.POST("/play/:mapName", playHandler(gameWorld, broadcaster))

	players := api.Group("/players/:player")
	players.GET("/units", unitsHandler(gameWorld))
	players.POST("/units", spawnHandler(gameWorld, broadcaster))
	players.POST("/moves", moveHandler(gameWorld, broadcaster))
	players.POST("/cancel", cancelHandler(gameWorld, broadcaster))
	players.POST("/end-round", endRoundHandler(gameWorld, broadcaster))
	players.GET("/visibility", visibilityHandler(gameWorld))
	players.GET("/cells/:row/:col", cellHandler(gameWorld))

	r.GET("/ws", HandleWebsocket(broadcaster, gameWorld))

	return r
}

// statusFor maps core errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, world.ErrUnknownPlayer), errors.Is(err, world.ErrUnknownUnit):
		return http.StatusNotFound
	case errors.Is(err, world.ErrNotYourTurn):
		return http.StatusForbidden
	case errors.Is(err, pathfind.ErrNotFound):
		return http.StatusConflict
	case errors.Is(err, world.ErrInvalidTarget), errors.Is(err, grid.ErrOutOfBounds):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func playerParam(c *gin.Context) (unit.PlayerID, bool) {
	n, err := strconv.Atoi(c.Param("player"))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("player must be a number"))
		return 0, false
	}
	return unit.PlayerID(n), true
}

func stateHandler(gameWorld *world.World) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"stats":      gameWorld.Stats(),
			"players":    gameWorld.Players(),
			"lastReport": gameWorld.LastReport(),
		})
	}
}

func playHandler(gameWorld *world.World, broadcaster *world.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		mapName := c.Param("mapName")
		log.Printf("=== LOADING MAP: %s ===", mapName)

		if mapName == world.MapCustom && c.Request.ContentLength > 0 {
			var req customMapRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
			if err := gameWorld.InitCustomMap(req.Size, req.Terrain); err != nil {
				fail(c, http.StatusBadRequest, err)
				return
			}
		} else {
			gameWorld.Reset()
			if err := gameWorld.InitMap(mapName); err != nil {
				fail(c, statusFor(err), err)
				return
			}
		}
		broadcaster.BroadcastVisibility()
		broadcaster.BroadcastStats()
		c.JSON(http.StatusOK, gameWorld.Stats())
	}
}

func unitsHandler(gameWorld *world.World) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		units, err := gameWorld.Units(player)
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		views := make([]unitView, 0, len(units))
		for _, u := range units {
			views = append(views, unitView{ID: u.ID, Type: u.Type.String(), Player: u.Player, Location: u.Location()})
		}
		c.JSON(http.StatusOK, views)
	}
}

func spawnHandler(gameWorld *world.World, broadcaster *world.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		var req spawnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		t, err := unit.ParseType(req.Type)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		u, err := gameWorld.SpawnUnit(player, t, grid.Cell{Row: *req.Row, Col: *req.Col})
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		broadcaster.BroadcastVisibility()
		broadcaster.BroadcastStats()
		c.JSON(http.StatusCreated, unitView{ID: u.ID, Type: u.Type.String(), Player: u.Player, Location: u.Location()})
	}
}

func moveHandler(gameWorld *world.World, broadcaster *world.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		var req moveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		id := uuid.MustParse(req.Unit)
		if err := gameWorld.RequestMove(player, id, grid.Cell{Row: *req.Row, Col: *req.Col}); err != nil {
			fail(c, statusFor(err), err)
			return
		}
		broadcaster.BroadcastVisibility()
		c.Status(http.StatusNoContent)
	}
}

func cancelHandler(gameWorld *world.World, broadcaster *world.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		if err := gameWorld.CancelOrders(player, uuid.MustParse(req.Unit)); err != nil {
			fail(c, statusFor(err), err)
			return
		}
		broadcaster.BroadcastVisibility()
		c.Status(http.StatusNoContent)
	}
}

func endRoundHandler(gameWorld *world.World, broadcaster *world.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		n, err := gameWorld.EndRound(player)
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		broadcaster.Rotated(n)
		c.JSON(http.StatusOK, n)
	}
}

func visibilityHandler(gameWorld *world.World) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		cells, err := gameWorld.Visibility(player)
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"player": player, "round": gameWorld.Round(), "cells": cells})
	}
}

func cellHandler(gameWorld *world.World) gin.HandlerFunc {
	return func(c *gin.Context) {
		player, ok := playerParam(c)
		if !ok {
			return
		}
		row, rerr := strconv.Atoi(c.Param("row"))
		col, cerr := strconv.Atoi(c.Param("col"))
		if rerr != nil || cerr != nil {
			fail(c, http.StatusBadRequest, errors.New("row and col must be numbers"))
			return
		}
		d, err := gameWorld.Descriptor(player, grid.Cell{Row: row, Col: col})
		if err != nil {
			fail(c, statusFor(err), err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"row": row, "col": col, "descriptor": d})
	}
}
