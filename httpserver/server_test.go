package httpserver_test

import (
	"bufio"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/goroutercore/httpserver"
	loggerfakes "code.cloudfoundry.org/goroutercore/logger/fakes"
	"code.cloudfoundry.org/goroutercore/serverhttp"
)

var _ = Describe("Server", func() {
	var (
		srv  *httpserver.Server
		addr string
	)

	BeforeEach(func() {
		srv = httpserver.NewServer(loggerfakes.New(), 2, func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
			_, _ = resp.Write([]byte("ok"))
			_ = resp.End()
		})

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr = ln.Addr().String()
		Expect(ln.Close()).To(Succeed())

		Expect(srv.Listen(addr, false)).To(Succeed())
		srv.Start()
	})

	AfterEach(func() {
		srv.Stop()
	})

	It("serves requests on the bound address", func() {
		Eventually(func() error {
			conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
			if err != nil {
				return err
			}
			defer conn.Close()
			_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
			return err
		}, 2*time.Second).Should(Succeed())

		conn, err := net.Dial("tcp", addr)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
		Expect(err).NotTo(HaveOccurred())

		reader := bufio.NewReader(conn)
		statusLine, err := reader.ReadString('\n')
		Expect(err).NotTo(HaveOccurred())
		Expect(statusLine).To(Equal("HTTP/1.1 200 OK\r\n"))
	})

	It("stops accepting connections after Stop", func() {
		srv.Stop()
		_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		Expect(err).To(HaveOccurred())
	})

	It("returns from WaitForListeners once Stop has torn down the accept loop", func() {
		srv.Stop()
		done := make(chan struct{})
		go func() {
			srv.WaitForListeners()
			close(done)
		}()
		Eventually(done, time.Second).Should(BeClosed())
	})
})

var _ = Describe("Server lifecycle notifications", func() {
	It("fires OnFail when Listen cannot bind", func() {
		occupied, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer occupied.Close()

		srv := httpserver.NewServer(loggerfakes.New(), 1, func(req *serverhttp.ServerRequest, resp *serverhttp.ServerResponse) {
			_ = resp.End()
		})

		var failedWith error
		srv.AddLifecycleListener(recordingLifecycle{onFail: func(err error) { failedWith = err }})

		err = srv.Listen(occupied.Addr().String(), false)
		Expect(err).To(HaveOccurred())
		Expect(failedWith).To(Equal(err))
	})
})

type recordingLifecycle struct {
	onFail func(err error)
}

func (r recordingLifecycle) OnStart()        {}
func (r recordingLifecycle) OnFail(err error) { r.onFail(err) }
func (r recordingLifecycle) OnStop()         {}
