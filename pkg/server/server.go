// Package server exposes a running retarget driver over HTTP.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/gwillem/handremap/pkg/handtrack"
	"github.com/gwillem/handremap/pkg/mapping"
	"github.com/gwillem/handremap/pkg/retarget"
)

// Bone is the JSON form of one evaluated bone.
type Bone struct {
	Index       int        `json:"index"`
	Name        string     `json:"name"`
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"` // x, y, z, w
	Scale       [3]float64 `json:"scale"`
}

// Pose is the JSON form of a driver state.
type Pose struct {
	Skeleton  string                       `json:"skeleton"`
	Timestamp time.Time                    `json:"timestamp"`
	Error     string                       `json:"error,omitempty"`
	Curls     map[handtrack.Finger]float64 `json:"curls,omitempty"`
	Bones     []Bone                       `json:"bones"`
}

// Pair is the JSON form of a mapping pair.
type Pair struct {
	Joint    string `json:"joint"`
	Bone     string `json:"bone"`
	Index    int    `json:"index"`
	Parent   int    `json:"parent"`
	Resolved bool   `json:"resolved"`
}

// Server serves driver state. Static, when set, accepts pushed frames.
type Server struct {
	Driver *retarget.Driver
	Table  *mapping.Table
	Static *handtrack.StaticSource
}

// Handler returns the routed handler, wrapped with panic recovery and
// request logging to logOut.
func (s *Server) Handler(logOut io.Writer) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/pose", s.handlePose).Methods(http.MethodGet)
	r.HandleFunc("/pose/{bone}", s.handleBone).Methods(http.MethodGet)
	r.HandleFunc("/mapping", s.handleMapping).Methods(http.MethodGet)
	r.HandleFunc("/frame", s.handleFrame).Methods(http.MethodPost)

	h := handlers.RecoveryHandler()(r)
	return handlers.LoggingHandler(logOut, h)
}

// ListenAndServe serves on addr until the listener fails.
func (s *Server) ListenAndServe(addr string, logOut io.Writer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(logOut),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if errors.Is(s.Driver.Latest().Error, retarget.ErrNoFrame) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "waiting for frames\n")
		return
	}
	io.WriteString(w, "OK\n")
}

func (s *Server) pose() Pose {
	st := s.Driver.Latest()
	c := s.Driver.Container()
	p := Pose{
		Skeleton:  c.Skeleton().Name,
		Timestamp: st.Timestamp,
		Curls:     st.Curls,
		Bones:     make([]Bone, 0, len(st.Bones)),
	}
	if st.Error != nil {
		p.Error = st.Error.Error()
	}
	for _, b := range st.Bones {
		t := b.Transform
		p.Bones = append(p.Bones, Bone{
			Index:       b.Index,
			Name:        c.BoneName(b.Index),
			Translation: [3]float64(t.Translation),
			Rotation:    [4]float64{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W},
			Scale:       [3]float64(t.Scale),
		})
	}
	return p
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pose())
}

func (s *Server) handleBone(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["bone"]
	for _, b := range s.pose().Bones {
		if b.Name == name {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeError(w, http.StatusNotFound, errors.Errorf("bone %q not in the last pose", name))
}

func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	pairs := make([]Pair, 0, len(s.Table.Pairs))
	for _, p := range s.Table.Pairs {
		pairs = append(pairs, Pair{
			Joint:    p.Joint.String(),
			Bone:     p.Bone,
			Index:    p.BoneIndex,
			Parent:   p.ParentIndex,
			Resolved: p.Resolved(),
		})
	}
	writeJSON(w, http.StatusOK, pairs)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.Static == nil {
		writeError(w, http.StatusConflict, errors.New("source does not accept pushed frames"))
		return
	}
	var wf handtrack.WireFrame
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&wf); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "decode frame"))
		return
	}
	f, err := wf.ToFrame()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.Static.Set(f)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
