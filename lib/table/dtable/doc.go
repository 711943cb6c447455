// Package dtable implements a replicated, fault-tolerant table using the Dragonboat
// RAFT consensus library. It provides a strongly consistent implementation of the
// table.Handle and table.Reader interfaces that operates across multiple nodes.
//
// Architecture:
//
//   - Table: Implements table.Handle and table.Reader and communicates with the
//     RAFT cluster. It serializes operations into commands, proposes them to the
//     consensus layer and converts the results back into values or *table.Error.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine holding an mtable.Table
//     on every replica. Commands are applied with Update, queries are answered by
//     Lookup and snapshots use mtable's Save and Load.
//
//   - Communication Protocol: Defined in the internal package (Command and Query).
//
// Write Operations:
//
//	Put, PutBatch and IncrementColumn follow this flow:
//
//	1. The operation is serialized into a Command. The proposer stamps the command
//	   with its clock so cells carrying cell.LatestTimestamp get the same timestamp
//	   on every replica.
//	2. The Command is proposed to the RAFT cluster via SyncPropose (retried on
//	   dragonboat.ErrSystemBusy).
//	3. Once committed, the command is applied by every replica (Update in statemachine.go).
//	4. The result is returned: a return code and, for increments, the new counter value.
//
// Read Operations:
//
//	Get and Row use SyncRead and are linearizable. Info uses StaleRead.
//
// Example:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	err = nh.StartConcurrentReplica(members, false,
//		dtable.CreateStateMachineFactory("fizzbuzz", nil, "num", "fizz", "buzz", "fizzbuzz"),
//		raftConfig)
//	t := dtable.New(nh, shardID, 5*time.Second)
//	defer t.Close()
//	err = t.Put(ctx, c)
package dtable
