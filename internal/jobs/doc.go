// Package jobs implements background job processing for raidbot.
//
// The jobs package contains scheduled tasks that run independently of
// reaction handling and HTTP requests.
//
// # Job Types
//
//   - ConversationExpiry: drops sign-up conversations that outlived their TTL
//   - StoreMonitor: pings the snapshot backend and publishes the raid count
//
// # Lifecycle
//
// Every job has the same shape: a constructor taking its dependencies and an
// interval, Start and Stop for the ticker loop, RunOnce for a manual or test
// trigger, and IsRunning.
//
//	expiry := jobs.NewConversationExpiry(conversationService, time.Minute)
//	expiry.Start()
//	defer expiry.Stop()
//
// # Error Handling
//
// Jobs log errors but don't crash the application.
package jobs
