//go:build tools

// Package protos pins the code generators for the gRPC contracts. Generated
// packages land in protos/gen and are compiled only with the protogen tag.
package protos

//go:generate protoc --proto_path=. --go_out=gen --go_opt=paths=source_relative --go-grpc_out=gen --go-grpc_opt=paths=source_relative booking/v1/availability.proto

import (
	_ "google.golang.org/grpc/cmd/protoc-gen-go-grpc"
	_ "google.golang.org/protobuf/cmd/protoc-gen-go"
)
