package ipc

import (
	"path/filepath"
	"testing"
)

func TestRequestReply(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "jarvisd.sock")

	srv, err := Serve(sock, func(req Request) Reply {
		switch req.Cmd {
		case "status":
			return Reply{OK: true, Msg: "listening"}
		case "say":
			return Reply{OK: true, Msg: "said: " + req.Arg}
		case "stats":
			return Reply{OK: true, Stats: map[string]uint64{"total_processed": 7}}
		default:
			return Reply{OK: false, Msg: "unknown command"}
		}
	})
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	defer srv.Close()

	reply, err := Send(sock, Request{Cmd: "status"})
	if err != nil {
		t.Fatalf("Send status: %v", err)
	}
	if !reply.OK || reply.Msg != "listening" {
		t.Errorf("status reply: %+v", reply)
	}

	reply, err = Send(sock, Request{Cmd: "say", Arg: "hello"})
	if err != nil {
		t.Fatalf("Send say: %v", err)
	}
	if !reply.OK || reply.Msg != "said: hello" {
		t.Errorf("say reply: %+v", reply)
	}

	reply, err = Send(sock, Request{Cmd: "stats"})
	if err != nil {
		t.Fatalf("Send stats: %v", err)
	}
	if reply.Stats["total_processed"] != 7 {
		t.Errorf("stats reply: %+v", reply)
	}

	reply, err = Send(sock, Request{Cmd: "frobnicate"})
	if err != nil {
		t.Fatalf("Send unknown: %v", err)
	}
	if reply.OK {
		t.Errorf("unknown command should not be OK: %+v", reply)
	}
}

func TestSendWithoutDaemon(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "nobody-home.sock")
	if _, err := Send(sock, Request{Cmd: "status"}); err == nil {
		t.Fatal("Send to a missing socket should fail")
	}
}
