// Package lifecycle runs test methods against simulated platform versions.
//
// A method is expanded into one Unit per selected version. Each Unit then
// moves through a fixed sequence of stages:
//
//	acquire   lease an environment, take ownership, install the run's shadows
//	prime     reset static state, bind the main thread, build resource views,
//	          create the application, run BeforeTest and PrepareTest
//	execute   run the test body
//	teardown  terminate the application, run AfterTest, reset static state
//	release   restore the previous main thread, drop ownership and the lease
//
// Teardown runs whenever acquire succeeded, and its three steps are attempted
// independently. Release always runs. Every Unit reports exactly one Result.
package lifecycle
