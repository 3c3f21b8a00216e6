package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// demoOpenAPIDocument describes the demo application below, used when no
// external spec file is configured
const demoOpenAPIDocument = `{
  "openapi": "3.0.0",
  "info": {"title": "demo application", "version": "1.0.0"},
  "paths": {
    "/": {
      "get": {"summary": "Service banner"}
    },
    "/items": {
      "post": {
        "summary": "Create item",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {
                  "name": {"type": "string", "example": "widget"},
                  "price": {"type": "number"}
                }
              }
            }
          }
        }
      }
    },
    "/items/{item_id}": {
      "get": {
        "summary": "Get item by id",
        "parameters": [
          {"name": "item_id", "in": "path", "required": true, "schema": {"type": "integer"}}
        ]
      }
    },
    "/error": {
      "get": {"summary": "Always panics, exercises the failure path"}
    }
  }
}`

type demoItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// newDemoApp builds the small application the monitoring layer wraps when the
// service runs standalone
func newDemoApp() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "demo application"})
	})

	router.GET("/items/:item_id", func(c *gin.Context) {
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "item_id must be an integer"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"item_id": itemID, "name": "widget"})
	})

	router.POST("/items", func(c *gin.Context) {
		item := demoItem{}
		err := c.ShouldBindJSON(&item)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid item"})
			return
		}

		c.JSON(http.StatusCreated, item)
	})

	router.GET("/error", func(c *gin.Context) {
		panic("demo failure")
	})

	return router
}
