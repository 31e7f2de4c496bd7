// Package handremap drives the hand bones of a skeleton from hand tracking.
//
// Every tick, the tracked joints of one hand (wrist, thumb and finger
// joints) are remapped onto the matching bones of a target skeleton. The
// mapping is either a built-in UE4 mannequin convention or a custom table,
// and is resolved against whichever bones the skeleton currently has.
//
// # Installation
//
//	go install github.com/gwillem/handremap/cmd/handremap@latest
//
// # Usage
//
// First, run setup to choose a skeleton and a tracking source:
//
//	handremap setup
//
// Then check the mapping and watch it live:
//
//	handremap inspect
//	handremap preview
//
// A single retargeted frame can be written as glTF, or poses served over
// HTTP:
//
//	handremap export -o pose.glb --curl index:0.8
//	handremap serve --addr :8080
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/handremap: CLI with setup, inspect, preview, export and serve commands
//   - pkg/xform: Transforms and axis helpers
//   - pkg/skeleton: Skeletons, bone containers, poses, glTF and YAML loading
//   - pkg/handtrack: Tracked hand frames and sources (static, websocket)
//   - pkg/glove: Servo data glove source
//   - pkg/mapping: Joint to bone mapping tables and built-in conventions
//   - pkg/retarget: Control node and ticker driver
//   - pkg/config: handremap.json configuration
//   - pkg/server: HTTP access to a running driver
package handremap
