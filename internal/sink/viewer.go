package sink

import (
	"bytes"
	"context"
	"errors"
	"github.com/coder/websocket"
	"github.com/willbeason/mandelbrot/pkg/raster"
	"github.com/willbeason/mandelbrot/pkg/render"
	"html/template"
	"net"
	"net/http"
	"time"
)

const writeTimeout = 10 * time.Second

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.}}</title></head>
<body style="margin:0;background:#000;color:#ccc;font-family:sans-serif">
<img id="raster" src="/image.png" alt="{{.}}">
<p id="stats">{{.}}</p>
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.binaryType = "blob";
ws.onmessage = (e) => {
  if (typeof e.data === "string") {
    document.getElementById("stats").textContent = e.data;
  } else {
    document.getElementById("raster").src = URL.createObjectURL(e.data);
  }
};
</script>
</body>
</html>
`))

// Viewer serves the raster to browsers at Addr until the context is
// cancelled: an HTML page at /, the PNG at /image.png, and a websocket at /ws
// which pushes the statistics and then the PNG to each client.
type Viewer struct {
	Addr string
}

func (v Viewer) Show(ctx context.Context, r *raster.Raster, stats render.Stats) error {
	l, err := net.Listen("tcp", v.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           Handler(r, stats),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	render.Logger().Info("viewer listening", "url", "http://"+l.Addr().String())

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler serves a single raster. The PNG is encoded once, up front.
func Handler(r *raster.Raster, stats render.Stats) http.Handler {
	var buf bytes.Buffer
	encodeErr := Encode(&buf, r, stats, false)
	img := buf.Bytes()
	title := stats.String()

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = page.Execute(w, title)
	})

	mux.HandleFunc("GET /image.png", func(w http.ResponseWriter, _ *http.Request) {
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		c, err := websocket.Accept(w, req, nil)
		if err != nil {
			render.Logger().Warn("websocket accept", "err", err)
			return
		}
		defer c.CloseNow()

		if encodeErr != nil {
			c.Close(websocket.StatusInternalError, "encoding failed")
			return
		}

		ctx, cancel := context.WithTimeout(req.Context(), writeTimeout)
		err = c.Write(ctx, websocket.MessageText, []byte(title))
		if err == nil {
			err = c.Write(ctx, websocket.MessageBinary, img)
		}
		cancel()
		if err != nil {
			render.Logger().Debug("websocket write", "err", err)
			return
		}

		// Hold the connection until the client leaves or the viewer stops.
		<-c.CloseRead(req.Context()).Done()
	})

	return mux
}
