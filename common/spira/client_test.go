package spira

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"demoblaze-e2e/common/e2e_config"
	"demoblaze-e2e/tools/spira-stub/stub"
)

var _ = Describe("Client", func() {

	var (
		server *httptest.Server
		fake   *stub.Server
		logs   *capturedLog
	)

	BeforeEach(func() {
		fake = stub.NewServer("u", "k")
		server = httptest.NewServer(fake)
		logs = &capturedLog{}
	})

	AfterEach(func() {
		server.Close()
	})

	build := func(cfg e2e_config.SpiraConfig, opts ...Option) *Client {
		opts = append([]Option{WithLogger(logs.logger()), WithClock(fixedClock)}, opts...)
		r, err := NewClient(cfg, opts...)
		Expect(err).ToNot(HaveOccurred())
		return r
	}

	It("should refuse an incomplete configuration", func() {
		cfg := testConfig(server.URL)
		cfg.User = ""
		cfg.ProjectID = 0
		_, err := NewClient(cfg)
		var cerr *ConfigurationError
		Expect(err).To(BeAssignableToTypeOf(cerr))
		Expect(err.Error()).To(ContainSubstring("SPIRA_USER"))
		Expect(err.Error()).To(ContainSubstring("project id"))
	})

	It("should post a passed run to the record endpoint", func() {
		client := &fakeClient{respond: respondWith(200, &trackingBody{Reader: strings.NewReader(`{"TestRunId":5}`)})}
		r := build(testConfig("https://x.test"), WithHTTPClient(client))

		resp, err := r.RecordTestRun(RunParams{
			TestCaseID:     2,
			Status:         Passed,
			RunnerName:     "R",
			RunnerTestName: "T",
			RunnerMessage:  "ok",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp).To(Equal(`{"TestRunId":5}`))

		Expect(client.requests).To(HaveLen(1))
		Expect(client.requests[0].URL.String()).To(
			Equal("https://x.test/Services/v6_0/RestService.svc/projects/1/test-runs/record"))
		Expect(client.requests[0].Header.Get("Authorization")).To(Equal("Basic dTpr"))

		var fields map[string]interface{}
		Expect(json.Unmarshal([]byte(client.bodies[0]), &fields)).To(Succeed())
		Expect(fields).To(HaveKeyWithValue("ExecutionStatusId", BeEquivalentTo(2)))
		Expect(fields).To(HaveKeyWithValue("TestCaseId", BeEquivalentTo(2)))
		Expect(fields).To(HaveKeyWithValue("RunnerName", "R"))
		Expect(fields).To(HaveKeyWithValue("RunnerStackTrace", ""))
		Expect(fields).ToNot(HaveKey("TestSetId"))
		Expect(fields).ToNot(HaveKey("ReleaseId"))
		Expect(fields["StartDate"]).To(Equal(fields["EndDate"]))
		Expect(logs.text()).To(ContainSubstring("Recorded test run"))
	})

	It("should be accepted by the service", func() {
		r := build(testConfig(server.URL + "/"))
		resp, err := r.RecordTestRun(RunParams{TestCaseID: 2, Status: Caution, RunnerName: "R", RunnerTestName: "T"})
		Expect(err).ToNot(HaveOccurred())
		Expect(resp).To(ContainSubstring(`"TestRunId":1`))

		runs := fake.Runs()
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Route).To(Equal(stub.RecordRoute))
		Expect(runs[0].ProjectID).To(Equal(1))
		Expect(runs[0].TestCaseID).To(Equal(2))
		Expect(runs[0].ExecutionStatusID).To(Equal(6))
	})

	It("should not touch the network for a non-positive test case id", func() {
		client := &fakeClient{respond: respondWith(200, &trackingBody{Reader: strings.NewReader("")})}
		r := build(testConfig("https://x.test"), WithHTTPClient(client))
		for _, id := range []int{0, -1} {
			_, err := r.RecordTestRun(RunParams{TestCaseID: id, Status: Passed, RunnerTestName: "T"})
			var cerr *ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cerr))
		}
		Expect(client.requests).To(BeEmpty())
	})

	It("should apply configured release and test set defaults", func() {
		cfg := testConfig(server.URL)
		cfg.ReleaseID = 12
		cfg.TestSetID = 34
		r := build(cfg)

		_, err := r.RecordTestRun(RunParams{TestCaseID: 2, Status: Passed, RunnerTestName: "T"})
		Expect(err).ToNot(HaveOccurred())
		_, err = r.RecordTestRun(RunParams{TestCaseID: 3, TestSetID: 99, Status: Passed, RunnerTestName: "T"})
		Expect(err).ToNot(HaveOccurred())

		runs := fake.Runs()
		Expect(runs).To(HaveLen(2))
		Expect(runs[0].Body).To(ContainSubstring(`"ReleaseId":12,"TestSetId":34`))
		Expect(runs[1].Body).To(ContainSubstring(`"ReleaseId":12,"TestSetId":99`))
	})

	It("should leave out ids passed as negative despite configured defaults", func() {
		cfg := testConfig(server.URL)
		cfg.ReleaseID = 12
		cfg.TestSetID = 34
		r := build(cfg)

		_, err := r.RecordTestRun(RunParams{TestCaseID: 2, ReleaseID: -1, TestSetID: -1, Status: Passed, RunnerTestName: "T"})
		Expect(err).ToNot(HaveOccurred())

		runs := fake.Runs()
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Body).ToNot(ContainSubstring("ReleaseId"))
		Expect(runs[0].Body).ToNot(ContainSubstring("TestSetId"))
	})

	It("should require a runner test name before sending", func() {
		client := &fakeClient{respond: respondWith(200, &trackingBody{Reader: strings.NewReader("")})}
		r := build(testConfig("https://x.test"), WithHTTPClient(client))
		for _, name := range []string{"", "   "} {
			_, err := r.RecordTestRun(RunParams{TestCaseID: 2, Status: Passed, RunnerTestName: name})
			var cerr *ConfigurationError
			Expect(err).To(BeAssignableToTypeOf(cerr))
			Expect(err.Error()).To(ContainSubstring("runner test name"))
		}
		Expect(client.requests).To(BeEmpty())
	})

	It("should return the service error for rejected credentials", func() {
		cfg := testConfig(server.URL)
		cfg.APIKey = "wrong"
		r := build(cfg)
		_, err := r.RecordTestRun(RunParams{TestCaseID: 2, Status: Passed, RunnerTestName: "T"})
		var terr *TransportError
		Expect(err).To(BeAssignableToTypeOf(terr))
		Expect(err.Error()).To(ContainSubstring("401"))
		Expect(err.Error()).To(ContainSubstring("Authentication failed"))
		Expect(fake.Runs()).To(BeEmpty())
	})

	Context("ReportPassFail", func() {
		It("should report a pass under the fixed runner name", func() {
			r := build(testConfig(server.URL))
			_, err := r.ReportPassFail(45, true, "LoginTest", "All assertions passed")
			Expect(err).ToNot(HaveOccurred())

			runs := fake.Runs()
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].ExecutionStatusID).To(Equal(2))
			Expect(runs[0].Body).To(ContainSubstring(`"RunnerName":"` + RunnerName + `"`))
			Expect(runs[0].Body).To(ContainSubstring(`"RunnerStackTrace":""`))
		})

		It("should report a failure with the placeholder stack trace", func() {
			r := build(testConfig(server.URL))
			_, err := r.ReportPassFail(45, false, "CartTest", "item missing")
			Expect(err).ToNot(HaveOccurred())

			runs := fake.Runs()
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].ExecutionStatusID).To(Equal(1))
			Expect(runs[0].Body).To(ContainSubstring(`"RunnerStackTrace":"See logs for details"`))
			Expect(runs[0].Body).To(ContainSubstring(`"RunnerMessage":"item missing"`))
		})
	})

	It("should use the legacy route when configured", func() {
		cfg := testConfig(server.URL)
		cfg.Mode = e2e_config.ModeLegacy
		cfg.User = ""
		r := build(cfg)

		resp, err := r.ReportPassFail(45, true, "LogoutTest", "done")
		Expect(err).ToNot(HaveOccurred())
		Expect(resp).To(ContainSubstring(`"status":"Passed"`))

		runs := fake.Runs()
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].Route).To(Equal(stub.LegacyRoute))
		Expect(runs[0].ProjectID).To(Equal(1))
		Expect(runs[0].Body).To(ContainSubstring(`"notes":"done"`))
	})

	It("should honour an explicit route", func() {
		cfg := testConfig(server.URL)
		r := build(cfg, WithRoute(LegacyRoute{}))
		_, err := r.ReportPassFail(45, false, "LogoutTest", "")
		Expect(err).ToNot(HaveOccurred())
		Expect(fake.Runs()[0].Status).To(Equal("Failed"))
	})

	It("should use the default client when none is given", func() {
		r, err := NewClient(testConfig(server.URL))
		Expect(err).ToNot(HaveOccurred())
		Expect(r.client).To(BeAssignableToTypeOf(&http.Client{}))
		Expect(r.client.(*http.Client).Timeout).To(Equal(testConfig("").Timeout))
	})
})
