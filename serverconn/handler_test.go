package serverconn_test

import (
	"bufio"
	"io"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	loggerfakes "code.cloudfoundry.org/goroutercore/logger/fakes"
	"code.cloudfoundry.org/goroutercore/serverconn"
	"code.cloudfoundry.org/goroutercore/serverhttp"
)

var _ = Describe("Handler", func() {
	var (
		clientConn, serverConn net.Conn
		done                   chan struct{}
	)

	BeforeEach(func() {
		clientConn, serverConn = net.Pipe()
		done = make(chan struct{})
	})

	AfterEach(func() {
		clientConn.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	runHandler := func(delegate serverconn.Delegate, opts ...serverconn.Option) {
		h := serverconn.NewHandler(serverConn, loggerfakes.New(), delegate, opts...)
		go func() {
			h.Serve()
			close(done)
		}()
	}

	It("invokes the delegate with a fully-parsed request and writes its response", func() {
		var gotMethod, gotPath string

		runHandler(func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
			gotMethod = req.Method
			gotPath = req.Path
			resp.Header.Set("Content-Type", "text/plain")
			_, _ = resp.Write([]byte("hello"))
			_ = resp.End()
		}, serverconn.WithIdleTimeout(time.Second))

		_, err := clientConn.Write([]byte("GET /widgets?x=1 HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(clientConn)
		statusLine, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(statusLine).To(Equal("HTTP/1.1 200 OK\r\n"))

		var body []byte
		for {
			line, err := reader.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		body, _ = io.ReadAll(reader)
		Expect(string(body)).To(Equal("hello"))

		Eventually(gotMethodFn(&gotMethod)).Should(Equal("GET"))
		Expect(gotPath).To(Equal("/widgets"))
	})

	It("keeps the connection open across keep-alive requests", func() {
		count := 0
		runHandler(func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
			count++
			_ = resp.End()
		}, serverconn.WithIdleTimeout(time.Second))

		for i := 0; i < 2; i++ {
			_, err := clientConn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
			Expect(err).NotTo(HaveOccurred())

			reader := bufio.NewReader(clientConn)
			statusLine, err := reader.ReadString('\n')
			Expect(err).NotTo(HaveOccurred())
			Expect(statusLine).To(Equal("HTTP/1.1 200 OK\r\n"))
			for {
				line, err := reader.ReadString('\n')
				if err != nil || line == "\r\n" {
					break
				}
			}
		}
		Expect(count).To(Equal(2))
	})

	It("renders a 500 when the delegate panics before writing a body", func() {
		runHandler(func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
			panic("boom")
		}, serverconn.WithIdleTimeout(time.Second))

		_, err := clientConn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(clientConn)
		statusLine, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(statusLine).To(Equal("HTTP/1.1 500 Internal Server Error\r\n"))
	})
})

func gotMethodFn(s *string) func() string {
	return func() string { return *s }
}
