package server

import (
	"encoding/json"
	"html"
	"net/http"
	"strings"

	"github.com/bitterfly/go-chaos/fabrica/database"
	"github.com/bitterfly/go-chaos/fabrica/embed"
)

type pageConfig struct {
	Bridge  string `json:"bridge"`
	FrameID string `json:"frameId"`
	Message string `json:"message"`
}

// frameAncestors is the CSP value allowing the page to be embedded by the
// configured portals.
func (s *Server) frameAncestors() string {
	ancestors := []string{"'self'"}
	for _, a := range s.Config.FrameAncestors {
		if a = strings.TrimSuffix(strings.TrimSpace(a), "/"); a != "" {
			ancestors = append(ancestors, a)
		}
	}
	return "frame-ancestors " + strings.Join(ancestors, " ")
}

func (s *Server) handleGamePage(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindVar(w, r)
	if !ok {
		return
	}
	slug, ok := slugVar(w, r)
	if !ok {
		return
	}
	obj, derr := database.GetGameBySlug(s.DB, kind, slug)
	if derr != nil {
		s.writeDatabaseError(w, "handleGamePage", derr)
		return
	}

	cfg, err := json.Marshal(pageConfig{
		Bridge:  "/api/embed" + kind.Path(obj.Slug),
		FrameID: embed.FrameID,
		Message: "Não foi possível carregar o jogo.",
	})
	if err != nil {
		s.Logger.Errorf("[handleGamePage] %s", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not render the game page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", s.frameAncestors())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(gamePageHTML(html.EscapeString(obj.Name), string(cfg))))
}

// gamePageHTML returns the host page. nameSafe is HTML-escaped, configJSON is
// JSON-encoded and safe to embed in a script.
func gamePageHTML(nameSafe, configJSON string) string {
	return `<!DOCTYPE html>
<html lang="pt-BR">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>` + nameSafe + `</title>
  <style>
    html, body { margin: 0; padding: 0; height: 100%; overflow: hidden; font-family: system-ui, sans-serif; }
    #fallback { display: none; padding: 24px; text-align: center; color: #555; }
  </style>
</head>
<body>
  <div id="root"></div>
  <p id="fallback"></p>
  <script>
  (function () {
    var cfg = ` + configJSON + `;
    var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(proto + '//' + location.host + cfg.bridge + location.search);

    function fail(msg) {
      var el = document.getElementById('fallback');
      el.textContent = msg || cfg.message;
      el.style.display = 'block';
    }

    window.addEventListener('message', function (event) {
      if (ws.readyState !== WebSocket.OPEN) {
        return;
      }
      var data = event.data;
      try {
        JSON.stringify(data);
      } catch (e) {
        data = null;
      }
      ws.send(JSON.stringify({ type: 'event', origin: event.origin, data: data }));
    });

    ws.onmessage = function (msg) {
      var m = JSON.parse(msg.data);
      switch (m.type) {
      case 'frame':
        var frame = document.createElement('iframe');
        frame.id = m.id;
        frame.src = m.src;
        frame.height = '100%';
        frame.width = '100%';
        frame.frameBorder = '0';
        frame.allowFullscreen = true;
        frame.style.cssText = 'position:fixed;top:0px;bottom:0px;right:0px;border:none;' +
          'margin:0;padding:0;overflow:hidden;z-index:999999';
        document.getElementById('root').appendChild(frame);
        break;
      case 'post':
        var target = document.getElementById(m.id);
        if (target && target.contentWindow) {
          target.contentWindow.postMessage(m.data, m.target);
        }
        break;
      case 'error':
        fail(cfg.message);
        break;
      }
    };
    ws.onerror = function () {
      fail(cfg.message);
    };
  })();
  </script>
</body>
</html>
`
}
