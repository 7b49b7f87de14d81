package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kirk91/stats"
	"k8s.io/klog"

	"github.com/melp/redisclient/redis"
)

var addr string

func init() {
	flag.StringVar(&addr, "addr", "127.0.0.1:6379", "The address of the redis server")
}

func main() {
	flag.Parse()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		klog.Fatal(err)
	}
	defer conn.Close()

	store := stats.NewStore(stats.NewStoreOption())
	go store.FlushingLoop(context.Background())

	c := redis.NewClient(conn, store.CreateScope("cmd"))
	repl(c, os.Stdin)
}

func repl(c *redis.Client, r io.Reader) {
	in := bufio.NewScanner(r)
	fmt.Printf("%s> ", addr)
	for in.Scan() {
		args := strings.Fields(in.Text())
		if len(args) == 0 {
			fmt.Printf("%s> ", addr)
			continue
		}
		if strings.EqualFold(args[0], "quit") {
			return
		}

		v, err := c.Do(args...)
		switch err := err.(type) {
		case nil:
			fmt.Println(format(v))
		case *redis.ServerError:
			fmt.Printf("(error) %s\n", err.Msg)
		default:
			// protocol and I/O failures are connection-fatal.
			klog.Errorf("connection lost: %v", err)
			os.Exit(1)
		}
		fmt.Printf("%s> ", addr)
	}
	if err := in.Err(); err != nil {
		klog.Warningf("read stdin: %v", err)
	}
}

func format(v *redis.RespValue) string {
	switch v.Type {
	case redis.Integer:
		return "(integer) " + strconv.FormatInt(v.Int, 10)
	case redis.SimpleString:
		return string(v.Text)
	case redis.BulkString:
		if v.IsNull() {
			return "(nil)"
		}
		return strconv.Quote(string(v.Text))
	case redis.Array:
		if v.IsNull() {
			return "(nil)"
		}
		if len(v.Array) == 0 {
			return "(empty array)"
		}
		var b strings.Builder
		for i := range v.Array {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d) %s", i+1, format(&v.Array[i]))
		}
		return b.String()
	case redis.Error:
		return "(error) " + string(v.Text)
	}
	return fmt.Sprintf("unknown reply type %q", byte(v.Type))
}
