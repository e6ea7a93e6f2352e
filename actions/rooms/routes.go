package rooms

import "github.com/gobuffalo/buffalo"

func Register(app *buffalo.App, controller *RoomsController) {
	app.GET("/rooms", controller.ListRooms)
	app.POST("/rooms", controller.CreateRoom)
	app.GET("/rooms/{roomID}", controller.GetRoom)
	app.POST("/rooms/{roomID}/end", controller.EndGame)
}
