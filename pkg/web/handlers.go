package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-chdk/pkg/hub"
)

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(indexHTML)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	return c.JSON(s.events)
}

// serveHub attaches a websocket connection to h until the peer leaves.
func (s *Server) serveHub(h *hub.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := hub.NewClient(h, conn)
		if client == nil {
			return
		}
		client.Run()
	}
}

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>chdkcam</title>
<style>
body { font-family: sans-serif; background: #111; color: #ddd; margin: 1em; }
#preview { max-width: 100%; border: 1px solid #333; }
#status { font-family: monospace; white-space: pre; }
</style>
</head>
<body>
<h1>chdkcam</h1>
<img id="preview" alt="waiting for frames">
<div id="status"></div>
<script>
const proto = location.protocol === "https:" ? "wss://" : "ws://";
const cam = new WebSocket(proto + location.host + "/ws/camera");
cam.binaryType = "blob";
let url;
cam.onmessage = (e) => {
  if (url) URL.revokeObjectURL(url);
  url = URL.createObjectURL(e.data);
  document.getElementById("preview").src = url;
};
const st = new WebSocket(proto + location.host + "/ws/status");
st.onmessage = (e) => {
  document.getElementById("status").textContent = JSON.stringify(JSON.parse(e.data), null, 2);
};
</script>
</body>
</html>
`
